// Оффлайн прогон пайплайна без сервера: сегментация + атрибуция
// по локальным файлам.
//
// Запуск:
//
//	go run ./cmd/identify -audio meeting.wav -json whisper.json \
//	    -enroll data/speakers -model models/eres2net_base_sv_16k.onnx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"speakerid/ai"
	"speakerid/attribute"
	"speakerid/morph"
	"speakerid/refine"
)

func main() {
	audioPath := flag.String("audio", "", "Path to the full audio file (WAV/MP3)")
	jsonPath := flag.String("json", "", "Path to the whisper transcript JSON")
	enrollDir := flag.String("enroll", "data/speakers", "Enrollment root with reference voices")
	modelPath := flag.String("model", "models/eres2net_base_sv_16k.onnx", "Speaker embedding ONNX model")
	backend := flag.String("backend", "sherpa", "Embedding backend: sherpa or onnx")
	threshold := flag.Float64("threshold", 0.25, "Similarity threshold")
	flag.Parse()

	if *audioPath == "" || *jsonPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*jsonPath)
	if err != nil {
		log.Fatalf("Failed to read transcript: %v", err)
	}

	refiner := refine.NewRefiner(morph.NewSuffixTagger(), refine.DefaultConfig())
	segments, err := refiner.RefineTranscript(data)
	if err != nil {
		log.Fatalf("Failed to refine transcript: %v", err)
	}
	log.Printf("Refined into %d segments", len(segments))

	scorer, err := ai.NewManager(ai.ManagerConfig{
		Backend:   ai.BackendType(*backend),
		ModelPath: *modelPath,
	})
	if err != nil {
		log.Fatalf("Failed to load embedding model: %v", err)
	}
	defer scorer.Close()

	engine := attribute.NewEngine(scorer, attribute.DefaultConfig())
	results, err := engine.Attribute(context.Background(), *audioPath, segments, *enrollDir, *threshold)
	if err != nil {
		log.Fatalf("Attribution failed: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tEND\tSPEAKER\tSCORE\tTEXT")
	for _, r := range results {
		fmt.Fprintf(w, "%.2f\t%.2f\t%s\t%.4f\t%s\n", r.Start, r.End, r.Speaker, r.Score, r.Text)
	}
	w.Flush()
}
