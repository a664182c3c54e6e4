// Package api поднимает HTTP сервер распознавания и push-каналы
// (websocket, gRPC) для событий прогресса.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"speakerid/internal/config"
	"speakerid/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// maxUploadBytes лимит multipart формы в памяти (крупные файлы уходят
// во временные файлы net/http)
const maxUploadBytes = 32 << 20

type Server struct {
	Config      *config.Config
	Recognition *service.RecognitionService

	clients map[*websocket.Conn]bool
	streams map[chan Message]bool
	mu      sync.Mutex
}

// NewServer создаёт сервер и подписывает его на события сервиса
func NewServer(cfg *config.Config, rec *service.RecognitionService) *Server {
	s := &Server{
		Config:      cfg,
		Recognition: rec,
		clients:     make(map[*websocket.Conn]bool),
		streams:     make(map[chan Message]bool),
	}
	rec.OnEvent = func(ev service.Event) {
		evCopy := ev
		s.broadcast(Message{Type: "event", Event: &evCopy})
	}
	return s
}

// Start запускает HTTP и gRPC серверы; блокируется на HTTP
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/recognize", s.handleRecognize)
	mux.HandleFunc("/ws", s.handleWebSocket)

	go s.startGRPCServer()

	log.Printf("[API] listening on :%s", s.Config.Port)
	return http.ListenAndServe(":"+s.Config.Port, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// handleRecognize принимает multipart: audio (WAV/MP3), whisper_json,
// опционально threshold. Временные файлы загрузки живут только в рамках
// запроса.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer audioFile.Close()

	jsonFile, _, err := r.FormFile("whisper_json")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing whisper_json file")
		return
	}
	defer jsonFile.Close()

	threshold := s.Recognition.DefaultThreshold()
	if v := r.FormValue("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid threshold %q", v))
			return
		}
		threshold = parsed
	}

	transcriptJSON, err := io.ReadAll(jsonFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read whisper_json: %v", err))
		return
	}

	// Стейджим аудио под уникальным именем: параллельные запросы
	// не должны пересекаться на общей файловой системе
	requestID := uuid.New().String()
	audioPath, err := s.stageUpload(audioFile, requestID, audioHeader.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer os.Remove(audioPath)

	result, err := s.Recognition.Recognize(r.Context(), requestID, audioPath, transcriptJSON, threshold)
	if err != nil {
		log.Printf("[API] recognize %s failed: %v", requestID, err)
		status := http.StatusInternalServerError
		if service.IsInputError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// stageUpload сохраняет загруженный файл во временную директорию
func (s *Server) stageUpload(src io.Reader, requestID, filename string) (string, error) {
	baseDir := s.Config.TempDir
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	path := filepath.Join(baseDir, requestID+"_"+filepath.Base(filename))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return path, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] websocket upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	log.Printf("[API] websocket client connected (%d total)", s.clientCount())

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			s.sendTo(conn, Message{Type: "pong"})
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) sendTo(conn *websocket.Conn, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[API] websocket write failed: %v", err)
	}
}

// broadcast рассылает сообщение всем websocket клиентам и gRPC стримам
func (s *Server) broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
	for ch := range s.streams {
		select {
		case ch <- msg:
		default:
			// Медленный подписчик не должен тормозить обработку
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
