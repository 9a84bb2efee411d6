package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-identity/internal/platform/kv"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdentityIndexAudit checks users:all against records and the login index.
	TaskIdentityIndexAudit = "identity:index_audit"
)

// IndexAuditPayload configures one audit run.
type IndexAuditPayload struct {
	Concurrency int `json:"concurrency"`
}

// NewIndexAuditTask constructs an Asynq task.
func NewIndexAuditTask(concurrency int) (*asynq.Task, error) {
	data, err := json.Marshal(IndexAuditPayload{Concurrency: concurrency})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdentityIndexAudit, data), nil
}

// RedisOpt maps kv options onto the Asynq connection settings so the queue
// lives on the same Redis deployment as the identity data.
func RedisOpt(opts kv.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
}
