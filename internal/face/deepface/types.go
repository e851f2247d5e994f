package deepface

// representRequest is the body of POST /represent.
type representRequest struct {
	Img              string `json:"img"`
	ModelName        string `json:"model_name"`
	DetectorBackend  string `json:"detector_backend"`
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

type representResponse struct {
	Results []representResult `json:"results"`
}

type representResult struct {
	Embedding      []float64  `json:"embedding"`
	FaceConfidence float64    `json:"face_confidence"`
	FacialArea     facialArea `json:"facial_area"`
}

type facialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type errorResponse struct {
	Error string `json:"error"`
}
