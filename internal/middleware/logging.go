package middleware

import (
	"net/http"

	"github.com/andrewwb/trainsight/pkg"

	log "github.com/sirupsen/logrus"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIp, err := pkg.ReadUserIP(r)
			if err != nil {
				userIp = r.RemoteAddr
			}
			log.Tracef(" ====> request [%s] path: [%s] [ip: %s] [UA: %s]", r.Method, r.URL.Path, userIp, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r)
		})
	}
}
