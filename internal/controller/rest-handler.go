package controller

import (
	"net/http"

	"github.com/syncwatch/server/pkg/rest"
)

type createRoomResponse struct {
	RoomId string `json:"roomId"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.roomService.CreateRoom(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create room"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, createRoomResponse{RoomId: resp.RoomId})
}

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, c.roomService.GetStats(r.Context()))
}
