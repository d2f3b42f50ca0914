package domain

// ModelOption describes one analysis endpoint exposed by the backend as
// /predict/<endpoint>.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
}
