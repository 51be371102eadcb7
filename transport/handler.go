package transport

import (
	"net/http"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/rs/zerolog"
)

// Handler routes GraphQL traffic. The root path upgrades websocket requests
// and serves every other request as GraphQL over HTTP.
func Handler(log zerolog.Logger, gql http.Handler, ws http.Handler, auth *Authenticator) http.Handler {
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUpgrade(r) {
			ws.ServeHTTP(w, r)
			return
		}
		gql.ServeHTTP(w, r)
	})

	mux := http.NewServeMux()
	mux.Handle("/", Chain(root,
		RequestIDMiddleware(log),
		AccessLogMiddleware,
		RecoveryMiddleware,
		CORSMiddleware,
		AuthMiddleware(auth),
	))
	mux.Handle("/playground", playground.Handler("Library catalog", "/"))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
