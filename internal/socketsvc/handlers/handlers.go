package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tavolo/tabletop-services/internal/comm"
	"github.com/tavolo/tabletop-services/internal/socketsvc/ws"
)

type Handler struct {
	upgrader  websocket.Upgrader
	ws        *ws.Ws
	tokenAuth *jwtauth.JWTAuth
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(s *ws.Ws, tokenAuth *jwtauth.JWTAuth) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:        s,
		tokenAuth: tokenAuth,
	}
	return h
}

// HandleWebSocket authenticates the caller from a token query parameter
// (browsers cannot set headers on a websocket upgrade), upgrades the
// connection and binds it to the user.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	jwtToken, err := jwtauth.VerifyToken(h.tokenAuth, token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	raw, _ := jwtToken.Get("user_id")
	userID, _ := raw.(string)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn)
	h.ws.BindUser(socketId, userID)

	log.Infof("New WebSocket connection %s for user %s", socketId, userID)

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			break
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(conn, "Invalid message format")
			continue
		}

		h.ws.SocketMessage(socketId, message)
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(conn *websocket.Conn, errorMsg string) {
	errorResponse := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if data, err := json.Marshal(errorResponse); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Errorf("Failed to send error message to client: %v", err)
		}
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "socket service is running at port " + os.Getenv("SOCKET_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}
