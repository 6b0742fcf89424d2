package game

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"weiqi_room/internal/bootstrap"
	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
	"weiqi_room/internal/httpresponse"
	gameuc "weiqi_room/internal/usecase/game"
	"weiqi_room/internal/utils"
)

const writeWait = 10 * time.Second

type GameHandler struct {
	cfg   bootstrap.Config
	log   *zap.SugaredLogger
	rooms *gameuc.Rooms
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewGameHandler(cfg bootstrap.Config, log *zap.SugaredLogger, rooms *gameuc.Rooms) *GameHandler {
	return &GameHandler{
		cfg:   cfg,
		log:   log,
		rooms: rooms,
	}
}

func (g *GameHandler) Routes(r chi.Router) {
	r.Post("/rooms", g.HandleNewRoom)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", g.HandleGetRoom)
		r.Post("/claim", g.HandleClaimSeat)
		r.Post("/move", g.HandleMove)
		r.Post("/pass", g.HandlePass)
		r.Post("/reset", g.HandleReset)
		r.Get("/archive", g.HandleArchive)
		r.Get("/ws", g.HandleStream)
	})
}

// session opens the room from the URL, writing the error response itself.
func (g *GameHandler) session(w http.ResponseWriter, r *http.Request) (*gameuc.Session, bool) {
	roomID := chi.URLParam(r, "roomID")
	s, err := g.rooms.Open(r.Context(), roomID)
	if err == nil {
		return s, true
	}
	if errors.Is(err, errs.ErrRoomNotFound) {
		g.log.Warnf("room not found: %s", roomID)
		httpresponse.WriteError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	g.log.Errorf("failed to open room %s: %v", roomID, err)
	httpresponse.WriteError(w, http.StatusServiceUnavailable, errs.ConnectionNotice)
	return nil, false
}

func (g *GameHandler) HandleNewRoom(w http.ResponseWriter, r *http.Request) {
	s, err := g.rooms.Create(r.Context())
	if err != nil {
		g.log.Errorf("failed to create room: %v", err)
		httpresponse.WriteError(w, http.StatusServiceUnavailable, errs.ConnectionNotice)
		return
	}

	g.log.Info("New room created with id: " + s.ID())
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game.RoomCreateResponse{RoomID: s.ID()})
}

func (g *GameHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, s.View())
}

func (g *GameHandler) HandleClaimSeat(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}
	color, view := s.ClaimSeat(r.Context())
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game.ClaimResponse{Color: color, View: view})
}

func (g *GameHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}

	var req game.MoveRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("JSON decode error: ", err)
		httpresponse.WriteError(w, http.StatusBadRequest, httpresponse.MALFORMEDJSON_errorDesc)
		return
	}
	if req.Row == nil || req.Col == nil {
		httpresponse.WriteError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	view, accepted := s.AttemptMove(r.Context(), *req.Row, *req.Col)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game.MoveResponse{Accepted: accepted, View: view})
}

func (g *GameHandler) HandlePass(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}
	view, over := s.Pass(r.Context())
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, game.PassResponse{View: view, GameOver: over})
}

func (g *GameHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, s.Reset(r.Context()))
}

func (g *GameHandler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	games, err := g.rooms.FinishedGames(r.Context(), roomID)
	if errors.Is(err, errs.ErrArchiveUnavailable) {
		httpresponse.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		g.log.Errorf("failed to load archive of room %s: %v", roomID, err)
		httpresponse.WriteInternalErrorResponse(w)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, games)
}

// HandleStream pushes a View over the websocket on every state change,
// starting with the current one. Only the newest pending View is kept for
// a slow client.
func (g *GameHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	s, ok := g.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("upgrade error: ", err)
		return
	}
	defer conn.Close()

	updates := make(chan game.View, 1)
	unsubscribe := s.Subscribe(func(v game.View) {
		select {
		case <-updates:
		default:
		}
		updates <- v
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err = g.writeView(conn, s.View()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case v := <-updates:
			if err = g.writeView(conn, v); err != nil {
				return
			}
		}
	}
}

func (g *GameHandler) writeView(conn *websocket.Conn, v game.View) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v); err != nil {
		g.log.Debugf("write to %s failed: %v", conn.RemoteAddr(), err)
		return err
	}
	return nil
}
