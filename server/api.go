package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sambeau/quantities/pkg/conversion"
	"github.com/sambeau/quantities/pkg/dimension"
	qerrors "github.com/sambeau/quantities/pkg/errors"
	"github.com/sambeau/quantities/pkg/report"
	"github.com/sambeau/quantities/pkg/system"
)

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/systems", s.handleSystems)
	s.mux.HandleFunc("GET /api/quantities", s.handleQuantities)
	s.mux.HandleFunc("GET /api/quantities/{name}", s.handleQuantity)
	s.mux.HandleFunc("GET /api/quantities/{name}/units", s.handleUnits)
	s.mux.HandleFunc("GET /api/dimensions/{key}", s.handleDimension)
	s.mux.HandleFunc("GET /api/convert", s.handleConvert)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/report", s.handleReport)
}

// system returns the system named by the request's system parameter.
func (s *Server) system(r *http.Request) (*system.System, error) {
	st := s.state.Load()
	name := r.URL.Query().Get("system")
	if name == "" {
		name = DefaultSystem
	}
	sys, ok := st.systems[name]
	if !ok {
		return nil, &apiError{
			Status:  http.StatusNotFound,
			Code:    "HTTP-404",
			Message: fmt.Sprintf("unknown unit system %q", name),
			Hints:   suggest(name, st.names),
		}
	}
	return sys, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	c := s.state.Load().collection
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"quantities": len(c.Quantities),
		"units":      len(c.Units),
	})
}

type systemInfo struct {
	Name    string            `json:"name"`
	Mapping map[string]string `json:"mapping"`
	Keys    []string          `json:"keys"`
}

func (s *Server) handleSystems(w http.ResponseWriter, r *http.Request) {
	st := s.state.Load()
	out := make([]systemInfo, 0, len(st.names))
	for _, name := range st.names {
		sys := st.systems[name]
		out = append(out, systemInfo{Name: name, Mapping: sys.Mapping(), Keys: sys.Keys()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuantities(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resolutions, err := sys.ResolveQuantities(r.URL.Query()["name"], s.config.Overrides)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolutions)
}

func (s *Server) handleQuantity(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := r.PathValue("name")
	override := r.URL.Query().Get("override")
	if override == "" {
		override = s.config.Overrides[name]
	}
	res, err := sys.Resolve(name, override)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	exprs, err := sys.Expressions(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exprs)
}

type dimensionResponse struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Quantities []string `json:"quantities"`
}

func (s *Server) handleDimension(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := dimension.ParseKey(r.PathValue("key"))
	if err != nil {
		s.writeError(w, &apiError{Status: http.StatusBadRequest, Code: "HTTP-400", Message: err.Error()})
		return
	}

	out := dimensionResponse{Key: v.Key(), Label: sys.Label(v), Quantities: []string{}}
	for _, q := range sys.Collection().QuantitiesFor(v) {
		out.Quantities = append(out.Quantities, q.Name)
	}
	s.writeJSON(w, http.StatusOK, out)
}

type convertResponse struct {
	Quantity string  `json:"quantity"`
	Value    string  `json:"value"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Result   string  `json:"result"`
	Approx   float64 `json:"approx"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if q.Get("value") == "" || from == "" || to == "" {
		s.writeError(w, &apiError{Status: http.StatusBadRequest, Code: "HTTP-400", Message: "value, from and to are required"})
		return
	}
	value, err := conversion.ParseRat(q.Get("value"))
	if err != nil {
		s.writeError(w, qerrors.NewBadLiteral(q.Get("value"), err))
		return
	}

	quantity := q.Get("quantity")
	if quantity == "" {
		shared, err := sys.Collection().SharedQuantity(from, to)
		if err != nil {
			var qerr *qerrors.QuantityError
			if !errors.As(err, &qerr) {
				err = &apiError{Status: http.StatusBadRequest, Code: "HTTP-400", Message: err.Error()}
			}
			s.writeError(w, err)
			return
		}
		quantity = shared.Name
	}

	result, err := sys.Convert(quantity, value, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	approx, _ := result.Float64()
	s.writeJSON(w, http.StatusOK, convertResponse{
		Quantity: quantity,
		Value:    conversion.FormatRat(value),
		From:     from,
		To:       to,
		Result:   conversion.FormatRat(result),
		Approx:   approx,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, &apiError{Status: http.StatusServiceUnavailable, Code: "HTTP-503", Message: "search needs a store"})
		return
	}
	query := r.URL.Query().Get("q")
	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			s.writeError(w, &apiError{Status: http.StatusBadRequest, Code: "HTTP-400", Message: fmt.Sprintf("invalid limit %q", l)})
			return
		}
		limit = n
	}
	results, err := s.store.Search(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sys, err := s.system(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := report.Options{
		Title:      r.URL.Query().Get("title"),
		Quantities: r.URL.Query()["name"],
		Overrides:  s.config.Overrides,
		Locale:     s.tag,
	}

	// Render fully before writing so errors still become JSON.
	var buf bytes.Buffer
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		err = report.HTML(&buf, sys, opts)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case "markdown", "md":
		err = report.Markdown(&buf, sys, opts)
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		err = &apiError{Status: http.StatusBadRequest, Code: "HTTP-400", Message: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		w.Header().Del("Content-Type")
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
