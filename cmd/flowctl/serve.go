package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/config"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

var contentTypes = map[string]string{
	"json": "application/json",
	"dot":  "text/vnd.graphviz; charset=utf-8",
	"svg":  "image/svg+xml",
	"png":  "image/png",
}

// server renders one document on request. The file is re-read every time,
// so the browser always shows what is on disk.
type server struct {
	router *mux.Router
	path   string
	cfg    config.Config
}

func newServer(path string, cfg config.Config) *server {
	s := &server{router: mux.NewRouter(), path: path, cfg: cfg}
	s.router.HandleFunc("/graph.{format:json|dot|svg|png}", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/analysis", s.handleAnalysis).Methods("GET")
	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/graph.svg", http.StatusFound)
	}).Methods("GET")
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	sess, err := openSession(s.cfg, s.path)
	if err != nil {
		logging.Error("cannot load document", "path", s.path, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer sess.Close()

	q := r.URL.Query()
	opts := renderOptions(s.cfg, q.Get("title"))
	if v, err := strconv.Atoi(q.Get("width")); err == nil && v > 0 && v <= 8192 {
		opts.Width = v
	}
	if v, err := strconv.Atoi(q.Get("height")); err == nil && v > 0 && v <= 8192 {
		opts.Height = v
	}

	var buf bytes.Buffer
	if err := render(sess, format, opts, &buf); err != nil {
		logging.Error("render failed", "format", format, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Write(buf.Bytes())
}

func (s *server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sess, err := openSession(s.cfg, s.path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer sess.Close()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(check(sess.Registry())); err != nil {
		logging.Error("failed to encode analysis", "error", err)
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve <document>",
		Short: "Serve live renderings of a flow document over HTTP",
		Long: `Serve renders the document on every request:

  /graph.svg  /graph.png  /graph.dot  /graph.json   (?width=&height=&title=)
  /analysis                                        validation and flow analysis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fail(err)
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           newServer(args[0], settings),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdown)
			}()

			banner("serving " + args[0])
			field("Address", "http://%s/graph.svg", addr)
			logging.Info("server listening", "addr", addr, "document", args[0])
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}
