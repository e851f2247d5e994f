package web

const (
	Register       = "/register"
	LoginEmail     = "/login_email"
	LoginFace      = "/login_face"
	Logout         = "/logout"
	Dashboard      = "/dashboard"
	UserProfile    = "/api/user-profile"
	Verifications  = "/api/verifications"
	Faces          = "/faces/"
	CSRFToken      = "/api/csrf-token"
	Health         = "/health"
	Metrics        = "/metrics"
	LoginFacePage  = "/loginface"
	LoginEmailPage = "/login"
)

// FaceURL é o caminho público da imagem de referência.
func FaceURL(filename string) string {
	return Faces + filename
}
