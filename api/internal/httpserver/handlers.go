package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"math-bot/api/internal/calc"
	"math-bot/api/internal/equation"
	"math-bot/api/internal/num"
)

type ReduceRequest struct {
	Expression string `json:"expression"`
}

type ReduceResponse struct {
	Expression string   `json:"expression"`
	Result     string   `json:"result"`
	Steps      []string `json:"steps"`
}

type SolveRequest struct {
	Shape     string         `json:"shape"`
	Equation  string         `json:"equation,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

type SolveResponse struct {
	equation.Solution
	Answer string `json:"answer"`
}

type ShapeInfo struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Format       string   `json:"format"`
	Instructions string   `json:"instructions"`
	Variables    []string `json:"variables"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) reduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	red, err := calc.Evaluate(req.Expression)
	if err != nil {
		s.writeError(w, r, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReduceResponse{
		Expression: req.Expression,
		Result:     red.String(),
		Steps:      red.Steps,
	})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	shape, err := equation.ParseShape(req.Shape)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sol, err := equation.SolveBag(shape, req.Equation, req.Variables)
	if err != nil {
		s.writeError(w, r, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SolveResponse{Solution: sol, Answer: sol.Answer()})
}

func (s *Server) shapes(w http.ResponseWriter, _ *http.Request) {
	out := make([]ShapeInfo, 0, len(equation.Shapes()))
	for _, sh := range equation.Shapes() {
		out = append(out, ShapeInfo{
			Name:         sh.String(),
			Title:        sh.Title(),
			Format:       sh.Format(),
			Instructions: sh.Instructions(),
			Variables:    sh.Variables(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor: ошибки ввода: 400, корректный запрос, который не вычисляется: 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, equation.ErrInvalidArgument), errors.Is(err, equation.ErrUnknownShape):
		return http.StatusBadRequest
	case errors.Is(err, calc.ErrMalformedExpression),
		errors.Is(err, equation.ErrInvalidEquation),
		errors.Is(err, num.ErrDivisionByZero),
		errors.Is(err, num.ErrNotANumber):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if code >= 500 {
		s.Log.Error("request failed", zap.String("path", r.URL.Path), zap.String("error", msg))
	}
	writeJSON(w, code, errorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
