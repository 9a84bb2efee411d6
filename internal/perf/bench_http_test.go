package perf

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-identity/internal/credentials"
	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	"github.com/odyssey-erp/odyssey-identity/internal/users"
)

func newUsersRouter(tb testing.TB) http.Handler {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })

	hasher, err := credentials.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hasher: %v", err)
	}
	svc := users.NewService(identity.NewStore(client, identity.Options{}), hasher, nil, nil)
	r := chi.NewRouter()
	r.Route("/users", users.NewHandler(nil, svc, users.RateLimits{}).MountRoutes)
	return r
}

func postJSON(h http.Handler, path, body string) int {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestIdentityLatencyTargets(t *testing.T) {
	h := newUsersRouter(t)

	var register, verify []time.Duration
	for i := 0; i < 20; i++ {
		body := fmt.Sprintf(`{"email":"load%d@example.com","password":"Passw0rd!"}`, i)

		start := time.Now()
		if code := postJSON(h, "/users/register", body); code != http.StatusCreated {
			t.Fatalf("register %d: status %d", i, code)
		}
		register = append(register, time.Since(start))

		start = time.Now()
		if code := postJSON(h, "/users/verify", body); code != http.StatusOK {
			t.Fatalf("verify %d: status %d", i, code)
		}
		verify = append(verify, time.Since(start))
	}

	scenarios := []struct {
		name      string
		samples   []time.Duration
		threshold time.Duration
	}{
		{name: "register", samples: register, threshold: 500 * time.Millisecond},
		{name: "verify", samples: verify, threshold: 500 * time.Millisecond},
	}
	for _, scenario := range scenarios {
		p95 := percentile95(scenario.samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func BenchmarkVerify(b *testing.B) {
	h := newUsersRouter(b)
	body := `{"email":"bench@example.com","password":"Passw0rd!"}`
	if code := postJSON(h, "/users/register", body); code != http.StatusCreated {
		b.Fatalf("register: status %d", code)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if code := postJSON(h, "/users/verify", body); code != http.StatusOK {
			b.Fatalf("verify: status %d", code)
		}
	}
}

func BenchmarkVerifyUnknown(b *testing.B) {
	h := newUsersRouter(b)
	body := `{"email":"ghost@example.com","password":"Passw0rd!"}`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if code := postJSON(h, "/users/verify", body); code != http.StatusUnauthorized {
			b.Fatalf("verify: status %d", code)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
