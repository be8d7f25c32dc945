// Command speechtester exercises the Google speech clients against the
// live API, for manual verification of credentials and audio formats.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/echomentor/backend/internal/config"
	"github.com/echomentor/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Fatal("speech service not configured, set GOOGLE_SPEECH_API_KEY first")
	}

	mode := flag.String("mode", "", "test mode: stt or tts")
	audioPath := flag.String("audio", "", "input audio file for stt")
	text := flag.String("text", "", "input text for tts")
	outputPath := flag.String("out", "", "tts output file (defaults to tts-output-<ts>.mp3)")
	variant := flag.String("variant", "", "persona variant for voice selection")
	session := flag.String("session", "", "session id, generated when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	if *mode != "stt" && *mode != "tts" {
		flag.Usage()
		log.Fatal("specify -mode=stt or -mode=tts")
	}

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	svc := speech.NewService(cfg.Speech)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "stt":
		runSTT(ctx, svc, sessionID, *audioPath)
	case "tts":
		runTTS(ctx, svc, sessionID, *text, *variant, *outputPath)
	}
}

func runSTT(ctx context.Context, svc *speech.Service, sessionID, audioPath string) {
	if audioPath == "" {
		log.Fatal("stt mode requires -audio")
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	mimeType := mimeTypeForExt(filepath.Ext(audioPath))
	log.Printf("running STT: session=%s mimeType=%s bytes=%d", sessionID, mimeType, len(data))

	resp, err := svc.TranscribeBuffer(ctx, sessionID, data, mimeType)
	if err != nil {
		log.Fatalf("STT failed: %v", err)
	}
	if resp.NoSpeech {
		log.Print("STT result: no speech detected")
		return
	}

	log.Printf("STT result: text=%q confidence=%.2f", resp.Transcript, resp.Confidence)
}

func runTTS(ctx context.Context, svc *speech.Service, sessionID, text, variant, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode requires -text")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	log.Printf("running TTS: session=%s variant=%s", sessionID, variant)

	resp, err := svc.SynthesizeText(ctx, sessionID, text, variant)
	if err != nil {
		log.Fatalf("TTS failed: %v", err)
	}

	if err := os.WriteFile(outputPath, resp.AudioContent, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("TTS done: wrote %s (%d bytes, voice=%s)", outputPath, len(resp.AudioContent), resp.Voice)
}

func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/webm"
	}
}
