package api

import (
	"fmt"
	"logpilot/domain"
	"logpilot/repositories"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, JSONResponse{Code: 0, Message: "success", Data: data})
}

func failure(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, JSONResponse{Code: code, Message: message})
}

type uploadResponse struct {
	domain.UploadView
	HumanSize    string `json:"human_size"`
	JustUploaded bool   `json:"just_uploaded"`
	Label        string `json:"label"`
}

func toUploadResponse(view domain.UploadView, now time.Time, grace time.Duration) uploadResponse {
	justUploaded := view.JustUploaded(now, grace)
	return uploadResponse{
		UploadView:   view,
		HumanSize:    humanize.IBytes(uint64(max(view.Size, 0))),
		JustUploaded: justUploaded,
		Label:        label(view, justUploaded),
	}
}

func toUploadResponses(views []domain.UploadView, now time.Time, grace time.Duration) []uploadResponse {
	return lo.Map(views, func(view domain.UploadView, _ int) uploadResponse {
		return toUploadResponse(view, now, grace)
	})
}

// label renders the status line shown next to a file.
func label(view domain.UploadView, justUploaded bool) string {
	switch view.Status {
	case domain.StatusUploading:
		return fmt.Sprintf("Uploading %d%%", view.Progress)
	case domain.StatusError:
		return "Upload failed"
	}
	if justUploaded {
		return "Just uploaded"
	}
	if view.RemainingSeconds == nil {
		return "Uploaded"
	}
	return "Auto-remove in " + countdown(*view.RemainingSeconds)
}

func countdown(seconds int) string {
	if minutes := seconds / 60; minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

type journalResponse struct {
	repositories.JournalEntry
	HumanSize string `json:"human_size"`
	Ago       string `json:"ago"`
}

func toJournalResponses(entries []repositories.JournalEntry, now time.Time) []journalResponse {
	return lo.Map(entries, func(entry repositories.JournalEntry, _ int) journalResponse {
		return journalResponse{
			JournalEntry: entry,
			HumanSize:    humanize.IBytes(uint64(max(entry.Size, 0))),
			Ago:          humanize.RelTime(entry.At, now, "ago", "from now"),
		}
	})
}
