// Package service содержит оркестрацию запроса распознавания:
// транскрипт -> сегментация -> атрибуция спикеров.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"speakerid/ai"
	"speakerid/attribute"
	"speakerid/refine"
)

// ErrEmptyTranscript транскрипт без единого слова — ошибка входных данных,
// а не сбой сервиса
var ErrEmptyTranscript = errors.New("no segments or chunks found in transcript JSON")

// inputError помечает ошибки, которые должны стать HTTP 400
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// IsInputError сообщает, виноват ли вход запроса, а не сервис
func IsInputError(err error) bool {
	var ie *inputError
	return errors.As(err, &ie) || errors.Is(err, ErrEmptyTranscript)
}

// Event событие прогресса обработки запроса
type Event struct {
	RequestID string `json:"requestId"`
	Stage     string `json:"stage"` // refining, scoring, done, failed
	Done      int    `json:"done,omitempty"`
	Total     int    `json:"total,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result итог запроса в формате ответа API
type Result struct {
	Status         string             `json:"status"`
	ProcessingTime string             `json:"processing_time"`
	Segments       int                `json:"segments"`
	Results        []attribute.Result `json:"results"`
}

// RecognitionService связывает движок сегментации и движок атрибуции.
// Scorer общий на процесс (модель одна), Engine атрибуции создаётся
// на каждый запрос — у него свой progress callback.
type RecognitionService struct {
	refiner    *refine.Refiner
	scorer     ai.Scorer
	attrConfig attribute.Config
	enrollDir  string
	threshold  float64

	// OnEvent опциональный callback для push-канала (websocket/gRPC)
	OnEvent func(Event)
}

// NewRecognitionService создаёт сервис распознавания
func NewRecognitionService(
	refiner *refine.Refiner,
	scorer ai.Scorer,
	attrConfig attribute.Config,
	enrollDir string,
	threshold float64,
) *RecognitionService {
	return &RecognitionService{
		refiner:    refiner,
		scorer:     scorer,
		attrConfig: attrConfig,
		enrollDir:  enrollDir,
		threshold:  threshold,
	}
}

// DefaultThreshold возвращает порог по умолчанию
func (s *RecognitionService) DefaultThreshold() float64 {
	return s.threshold
}

// EnrollDir возвращает сконфигурированный enrollment корень
func (s *RecognitionService) EnrollDir() string {
	return s.enrollDir
}

func (s *RecognitionService) emit(ev Event) {
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}

// Recognize выполняет полный цикл: парсинг транскрипта, сегментация,
// атрибуция. audioPath и transcriptJSON уже материализованы вызывающей
// стороной; их удаление — её ответственность.
func (s *RecognitionService) Recognize(
	ctx context.Context,
	requestID string,
	audioPath string,
	transcriptJSON []byte,
	threshold float64,
) (*Result, error) {
	started := time.Now()

	s.emit(Event{RequestID: requestID, Stage: "refining"})

	words, err := refine.ParseTranscript(transcriptJSON)
	if err != nil {
		s.emit(Event{RequestID: requestID, Stage: "failed", Error: err.Error()})
		return nil, &inputError{err: err}
	}
	if len(words) == 0 {
		s.emit(Event{RequestID: requestID, Stage: "failed", Error: ErrEmptyTranscript.Error()})
		return nil, ErrEmptyTranscript
	}

	segments := s.refiner.Refine(words)

	s.emit(Event{RequestID: requestID, Stage: "scoring", Done: 0, Total: len(segments)})

	engine := attribute.NewEngine(s.scorer, s.attrConfig)
	engine.OnProgress = func(done, total int) {
		s.emit(Event{RequestID: requestID, Stage: "scoring", Done: done, Total: total})
	}

	results, err := engine.Attribute(ctx, audioPath, segments, s.enrollDir, threshold)
	if err != nil {
		s.emit(Event{RequestID: requestID, Stage: "failed", Error: err.Error()})
		return nil, fmt.Errorf("attribution failed: %w", err)
	}

	s.emit(Event{RequestID: requestID, Stage: "done", Done: len(results), Total: len(results)})

	return &Result{
		Status:         "success",
		ProcessingTime: fmt.Sprintf("%.2fs", time.Since(started).Seconds()),
		Segments:       len(segments),
		Results:        results,
	}, nil
}
