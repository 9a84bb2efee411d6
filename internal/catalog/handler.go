package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-identity/internal/platform/httpx"
)

// Catalog is the service surface used by Handler.
type Catalog interface {
	Generate(ctx context.Context) (GenerateResult, error)
	List(ctx context.Context, filter Filter) ([]Product, error)
}

// Handler serves the product endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Catalog
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Catalog) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/generate", h.generate)
	r.Get("/", h.list)
}

type listResponse struct {
	Products []Product `json:"products"`
	Count    int       `json:"count"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Generate(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "generate products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "", result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, problems := parseFilter(r.URL.Query())
	if len(problems) > 0 {
		httpx.ValidationProblem(w, problems)
		return
	}
	if err := h.validator.Struct(filter); err != nil {
		httpx.ValidationProblem(w, filterMessages(err))
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", listResponse{Products: products, Count: len(products)})
}

func parseFilter(q url.Values) (Filter, map[string]string) {
	problems := make(map[string]string)
	f := Filter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		SKU:      q.Get("sku"),
	}

	floatParam := func(key string) *float64 {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			problems[key] = key + " must be a number"
			return nil
		}
		return &v
	}
	intParam := func(key string) *int {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			problems[key] = key + " must be an integer"
			return nil
		}
		return &v
	}

	f.MinPrice = floatParam("minPrice")
	f.MaxPrice = floatParam("maxPrice")
	f.MinStock = intParam("minStock")
	f.MaxStock = intParam("maxStock")
	if v := intParam("limit"); v != nil {
		f.Limit = *v
		if *v == 0 {
			problems["limit"] = "limit must be between 1 and 100"
		}
	}
	if v := intParam("offset"); v != nil {
		f.Offset = *v
	}
	return f, problems
}

var filterParams = map[string]string{
	"Name": "name", "Category": "category", "Brand": "brand", "SKU": "sku",
	"MinPrice": "minPrice", "MaxPrice": "maxPrice",
	"MinStock": "minStock", "MaxStock": "maxStock",
	"Limit": "limit", "Offset": "offset",
}

func filterMessages(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["query"] = "Invalid query parameters"
		return out
	}
	for _, fe := range verrs {
		name := filterParams[fe.Field()]
		switch fe.Tag() {
		case "gte":
			out[name] = name + " must not be negative"
		case "min", "max":
			if name == "limit" {
				out[name] = "limit must be between 1 and 100"
			} else {
				out[name] = name + " is too long"
			}
		default:
			out[name] = name + " is invalid"
		}
	}
	return out
}
