// Package server provides HTTP access to the PNG files in a store
// and the messages hidden in them.
//
// Routes:
//
//	GET    /images                      list file names, one per line
//	PUT    /images/{name}               store a PNG file
//	GET    /images/{name}               describe the chunks of a file (JSON)
//	GET    /images/{name}/messages/{tag}  recover a message
//	PUT    /images/{name}/messages/{tag}  hide the request body as a message
//	DELETE /images/{name}/messages/{tag}  remove a message
//
// File names containing slashes must be path-escaped.
// Message routes accept ?split=1 (see stash.Options),
// PUT accepts ?force=1 to allow a nonconforming tag,
// and DELETE accepts ?all=1.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/bobg/pngmsg"
	"github.com/bobg/pngmsg/stash"
	"github.com/bobg/pngmsg/store"
	"github.com/bobg/pngmsg/transform"
)

// Server serves the files in a store.
type Server struct {
	s store.Store
	x transform.Transformer
}

// New produces a new Server for the files in s.
// Messages are transformed with x,
// which may be nil.
func New(s store.Store, x transform.Transformer) *Server {
	return &Server{s: s, x: x}
}

// Handler produces the http.Handler for the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/images", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/{name}", s.handleChunks)
		r.Put("/{name}", s.handlePutImage)
		r.Get("/{name}/messages/{tag}", s.handleDecode)
		r.Put("/{name}/messages/{tag}", s.handleEncode)
		r.Delete("/{name}/messages/{tag}", s.handleRemove)
	})

	return r
}

func (s *Server) handleList(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err := s.s.List(req.Context(), "", func(name string) error {
		_, err := fmt.Fprintln(w, name)
		return err
	})
	if err != nil {
		log.Printf("Error listing images: %s", err)
	}
}

func (s *Server) handleChunks(w http.ResponseWriter, req *http.Request) {
	name, ok := param(w, req, "name")
	if !ok {
		return
	}
	infos, err := stash.Chunks(req.Context(), s.s, name)
	if err != nil {
		httpErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(infos); err != nil {
		log.Printf("Error writing chunks of %s: %s", name, err)
	}
}

func (s *Server) handlePutImage(w http.ResponseWriter, req *http.Request) {
	name, ok := param(w, req, "name")
	if !ok {
		return
	}
	b, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err = pngmsg.Parse(b); err != nil {
		httpErr(w, err)
		return
	}
	if err = s.s.Put(req.Context(), name, b); err != nil {
		httpErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDecode(w http.ResponseWriter, req *http.Request) {
	name, tag, ok := nameAndTag(w, req)
	if !ok {
		return
	}
	msg, err := stash.Decode(req.Context(), s.s, name, tag, s.options(req))
	if err != nil {
		httpErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(msg)
}

func (s *Server) handleEncode(w http.ResponseWriter, req *http.Request) {
	name, tag, ok := nameAndTag(w, req)
	if !ok {
		return
	}
	msg, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	chunks, err := stash.Encode(req.Context(), s.s, name, tag, msg, s.options(req))
	if err != nil {
		httpErr(w, err)
		return
	}
	log.Printf("Encoded %d-byte message as %d %s chunk(s) in %s", len(msg), len(chunks), tag, name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, req *http.Request) {
	name, tag, ok := nameAndTag(w, req)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(req.URL.Query().Get("all"))
	removed, err := stash.Remove(req.Context(), s.s, name, tag, all)
	if err != nil {
		httpErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"removed": len(removed)})
}

func (s *Server) options(req *http.Request) *stash.Options {
	q := req.URL.Query()
	split, _ := strconv.ParseBool(q.Get("split"))
	force, _ := strconv.ParseBool(q.Get("force"))
	return &stash.Options{Transformer: s.x, Split: split, AllowNonconforming: force}
}

// param gets a path-unescaped URL parameter,
// replying with 400 Bad Request if it is malformed.
func param(w http.ResponseWriter, req *http.Request, key string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(req, key))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return v, true
}

func nameAndTag(w http.ResponseWriter, req *http.Request) (name, tag string, ok bool) {
	if name, ok = param(w, req, "name"); !ok {
		return
	}
	tag, ok = param(w, req, "tag")
	return
}

func httpErr(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), status(err))
}

func status(err error) int {
	switch {
	case errors.Is(err, pngmsg.ErrInvalidTagBytes),
		errors.Is(err, pngmsg.ErrInvalidTagLength),
		errors.Is(err, stash.ErrNonconforming):
		return http.StatusBadRequest

	case errors.Is(err, stash.ErrTagInUse):
		return http.StatusConflict

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, pngmsg.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, pngmsg.ErrBadSignature),
		errors.Is(err, pngmsg.ErrTruncated),
		errors.Is(err, pngmsg.ErrTrailingData),
		errors.Is(err, pngmsg.ErrChecksumMismatch),
		errors.Is(err, pngmsg.ErrInvalidUTF8):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
