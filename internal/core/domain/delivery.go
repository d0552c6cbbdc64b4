package domain

type DeliveryZone struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Cost          int64  `json:"cost" yaml:"cost"`
	ToConsult     bool   `json:"toConsult" yaml:"toConsult"`
	EstimatedTime string `json:"estimatedTime,omitempty" yaml:"estimatedTime"`
}
