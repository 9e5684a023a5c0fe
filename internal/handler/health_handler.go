package handler

import (
	"net/http"
	"time"
)

// healthResponse はヘルスチェックのAPIレスポンス。
type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health はサービスの稼働状態を返す。認証不要。
// GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Message:   "Task API is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
