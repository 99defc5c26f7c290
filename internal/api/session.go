package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shapedtime/abrkit/internal/simulate"
)

type sessionResponse struct {
	ElapsedMs       int64  `json:"elapsed_ms"`
	PositionUs      int64  `json:"position_us"`
	BufferedUs      int64  `json:"buffered_us"`
	QueueChunks     int    `json:"queue_chunks"`
	Format          string `json:"format"`
	Bitrate         int    `json:"bitrate"`
	Trigger         string `json:"trigger"`
	Decisions       uint64 `json:"decisions"`
	Switches        uint64 `json:"switches"`
	DiscardRequests uint64 `json:"discard_requests"`
	DiscardedChunks uint64 `json:"discarded_chunks"`
	Rebuffers       uint64 `json:"rebuffers"`
	Done            bool   `json:"done"`
}

type decisionResponse struct {
	ElapsedMs  int64  `json:"elapsed_ms"`
	PositionUs int64  `json:"position_us"`
	BufferedUs int64  `json:"buffered_us"`
	Format     string `json:"format"`
	Bitrate    int    `json:"bitrate"`
	Trigger    string `json:"trigger"`
	Discarded  int    `json:"discarded,omitempty"`
	Switched   bool   `json:"switched"`
}

type formatResponse struct {
	ID      string `json:"id"`
	Bitrate int    `json:"bitrate"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (s *Server) getSession(c *gin.Context) {
	stats := s.runner.Snapshot()
	c.JSON(http.StatusOK, sessionResponse{
		ElapsedMs:       stats.Elapsed.Milliseconds(),
		PositionUs:      stats.PositionUs,
		BufferedUs:      stats.BufferedUs,
		QueueChunks:     stats.QueueLen,
		Format:          stats.FormatID,
		Bitrate:         stats.Bitrate,
		Trigger:         stats.Trigger.String(),
		Decisions:       stats.Decisions,
		Switches:        stats.Switches,
		DiscardRequests: stats.DiscardRequests,
		DiscardedChunks: stats.DiscardedChunks,
		Rebuffers:       stats.Rebuffers,
		Done:            stats.Done,
	})
}

func (s *Server) getDecisions(c *gin.Context) {
	decisions := s.runner.Decisions()
	out := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, toDecisionResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"decisions": out, "count": len(out)})
}

func (s *Server) getFormats(c *gin.Context) {
	formats := s.runner.Formats()
	out := make([]formatResponse, 0, len(formats))
	for _, f := range formats {
		out = append(out, formatResponse{
			ID:      f.ID,
			Bitrate: f.Bitrate,
			Width:   f.Width,
			Height:  f.Height,
		})
	}
	c.JSON(http.StatusOK, gin.H{"formats": out})
}

func toDecisionResponse(d simulate.Decision) decisionResponse {
	return decisionResponse{
		ElapsedMs:  d.Elapsed.Milliseconds(),
		PositionUs: d.PositionUs,
		BufferedUs: d.BufferedUs,
		Format:     d.FormatID,
		Bitrate:    d.Bitrate,
		Trigger:    d.Trigger.String(),
		Discarded:  d.Discarded,
		Switched:   d.Switched,
	}
}
