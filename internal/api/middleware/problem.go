package middleware

import (
	"net/http"

	"github.com/prohealth/prohealth/internal/api/models"
)

// writeProblem stamps p with the request path and sends it. Middleware
// cannot use the response package, which imports this one.
func writeProblem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.Instance = r.URL.Path
	p.Write(w)
}
