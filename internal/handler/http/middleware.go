package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/httputil"
)

// CartVersionHeader carries the stored cart version so clients can detect
// concurrent edits from another tab.
const CartVersionHeader = "X-Cart-Version"

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeCart(w http.ResponseWriter, status int, cart *domain.Cart) {
	w.Header().Set(CartVersionHeader, strconv.Itoa(cart.Version))
	httputil.WriteData(w, status, cart)
}
