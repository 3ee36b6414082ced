package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dealflowhq/autopilot/internal/simulation"
)

// DemoHandler отдает состояние детерминированного 90-дневного демо.
// Никакого состояния на сервере: ?day= задает день напрямую, значения вне
// границ зажимаются внутри BuildDayState. Плейбек (таймер, слайдер,
// скрытие карточек) живет на клиенте.
type DemoHandler struct {
	script simulation.Script
}

func NewDemoHandler(script simulation.Script) *DemoHandler {
	return &DemoHandler{script: script}
}

func (h *DemoHandler) GetState(w http.ResponseWriter, r *http.Request) {
	day := 1
	if s := r.URL.Query().Get("day"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid day parameter", http.StatusBadRequest)
			return
		}
		day = n
	}

	state := simulation.BuildDayState(h.script, day)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}
