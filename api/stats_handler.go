package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pairchat/contract"
	"pairchat/observability"
	"pairchat/repositories"
)

type StatsHandler struct {
	collector *observability.StatsCollector
	users     repositories.IUserRepository
	messages  repositories.IMessageRepository
	presence  contract.IPresence
}

func NewStatsHandler(collector *observability.StatsCollector,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	presence contract.IPresence) *StatsHandler {
	return &StatsHandler{
		collector: collector,
		users:     users,
		messages:  messages,
		presence:  presence,
	}
}

func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.collector.Collect()

	totalUsers, err := h.users.Count()
	if err != nil {
		respondDomainError(w, err)
		return
	}
	totalMessages, err := h.messages.Count()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	stats.TotalUsers = totalUsers
	stats.TotalMessages = totalMessages
	for _, p := range h.presence.Snapshot() {
		if p.Online {
			stats.OnlineUsers++
		}
	}

	respondJSON(w, http.StatusOK, stats)
}
