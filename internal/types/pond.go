package types

// PondStatus summarizes the worst open breach of a pond
type PondStatus string

const (
	StatusOptimal  PondStatus = "optimal"
	StatusWarning  PondStatus = "warning"
	StatusCritical PondStatus = "critical"
)
