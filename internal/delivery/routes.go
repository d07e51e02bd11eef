package delivery

import (
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(
	r chi.Router,
	hConv *ConversationHandler,
	hHist *HistoryHandler,
	hSpeech *SpeechHandler,
	tokens TokenVerifier,
) {
	r.Route("/", func(pr chi.Router) {
		pr.Use(
			httputil.RecoverMiddleware,
			httprate.LimitByIP(120, time.Minute),
			AuthMiddleware(tokens),
		)

		// --- conversation flow ---
		pr.Post("/conversation/start", hConv.Start)
		pr.Post("/conversation/input/start", hConv.StartInput)
		pr.Post("/conversation/input/finish", hConv.FinishInput)
		pr.Post("/conversation/pause", hConv.Pause)
		pr.Post("/conversation/resume", hConv.Resume)
		pr.Post("/conversation/end", hConv.End)
		pr.Get("/conversation", hConv.GetState)
		pr.Get("/conversation/history", hConv.GetHistory)

		// --- synthesis settings ---
		pr.Get("/conversation/settings", hConv.GetSettings)
		pr.Patch("/conversation/settings", hConv.UpdateSettings)

		// --- stored sessions ---
		pr.Get("/sessions", hHist.ListSessions)
		pr.Get("/sessions/{session_id}", hHist.GetSession)
		pr.Get("/sessions/{session_id}/export", hHist.ExportSession)

		// --- synthesis usage ---
		pr.Get("/speech/usage", hSpeech.GetUsage)
	})
}
