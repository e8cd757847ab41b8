// pkg/registry/schema.go
package registry

type PipelineRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Pipelines   []Pipeline `json:"pipelines"`
}

// Pipeline describes one job type: its stages in order and the payload
// accepted on submission.
type Pipeline struct {
	JobType     string                 `json:"jobType"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Version     string                 `json:"version"`
	TaskType    string                 `json:"taskType"` // zeebe job type
	Stages      []string               `json:"stages"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Timeout     string                 `json:"timeout"`
	Retries     int                    `json:"retries"`
	Tags        []string               `json:"tags"`
}
