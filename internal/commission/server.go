package commission

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/itsthekvd/kushlapp-engine/pkg/cerr"
)

type Server struct {
	calc *Calculator
}

func NewServer(calc *Calculator) *Server {
	return &Server{calc: calc}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/commission/quote", s.quote)
	r.Get("/commission/tiers", s.tiers)
}

type Quote struct {
	Amount     int64 `json:"amount"`
	Percentage int   `json:"percentage"`
	Commission int64 `json:"commission"`
	Net        int64 `json:"net"`
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("amount")
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "amount must be an integer", err)
		return
	}
	cerr.SetJSONResponse(ctx, &Quote{
		Amount:     amount,
		Percentage: s.calc.PercentageFor(amount),
		Commission: s.calc.CommissionOn(amount),
		Net:        s.calc.NetEarnings(amount),
	})
}

func (s *Server) tiers(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), map[string]any{"tiers": s.calc.Tiers()})
}
