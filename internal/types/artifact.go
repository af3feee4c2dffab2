package types

// TopicID identifies one monitoring topic (gini, psi, calibration, ...).
type TopicID string

// TopicArtifact is everything one topic run produces for the report.
// A later run of the same topic replaces the earlier artifact.
type TopicArtifact struct {
	Topic        TopicID              `json:"topic"`
	Title        string               `json:"title"`
	MetricType   string               `json:"metric_type,omitempty"`
	Table        Table                `json:"table"`
	ChartImage   []byte               `json:"chart_image,omitempty"`
	Thresholds   *ThresholdConfig     `json:"thresholds,omitempty"`
	Target       ClassificationTarget `json:"target"`
	Band         Band                 `json:"band"`
	DataComment  string               `json:"data_comment,omitempty"`
	GraphComment string               `json:"graph_comment,omitempty"`
}
