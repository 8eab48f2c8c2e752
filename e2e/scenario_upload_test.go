package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type UploadLifecycleSuite struct {
	BaseHTTPSuite
}

func TestUploadLifecycleSuite(t *testing.T) {
	suite.Run(t, new(UploadLifecycleSuite))
}

type session struct {
	ID string `json:"id"`
}

type upload struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	RemainingSeconds *int   `json:"remaining_seconds"`
	Label            string `json:"label"`
}

type notification struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

const logLines = "2026-10-18T09:30:00Z ERROR payment timeout\n2026-10-18T09:30:01Z INFO retry ok\n"

func (s *UploadLifecycleSuite) openSession(t *testing.T) string {
	var opened session
	s.Require().Equal(http.StatusCreated, s.Do(t, http.MethodPost, "/api/sessions", "", nil, &opened))
	t.Cleanup(func() {
		s.Do(t, http.MethodDelete, "/api/sessions/"+opened.ID, "", nil, nil)
	})
	return opened.ID
}

func (s *UploadLifecycleSuite) waitForStatus(t *testing.T, sid, status string) upload {
	var found upload
	s.Require().Eventually(func() bool {
		var rows []upload
		s.Do(t, http.MethodGet, "/api/sessions/"+sid+"/uploads", "", nil, &rows)
		if len(rows) == 1 && rows[0].Status == status {
			found = rows[0]
			return true
		}
		return false
	}, 30*time.Second, 250*time.Millisecond)
	return found
}

func (s *UploadLifecycleSuite) TestAutoRemoval() {
	t := s.T()
	countdown, err := time.ParseDuration(s.Config.Countdown)
	s.Require().NoError(err)

	s.Step(t, "upload a.log")
	sid := s.openSession(t)
	var accepted upload
	s.Require().Equal(http.StatusAccepted, s.Upload(t, sid, "a.log", logLines, &accepted))
	s.Equal("a.log", accepted.Name)

	s.Step(t, "wait for the countdown")
	s.waitForStatus(t, sid, "success")
	s.Require().Eventually(func() bool {
		var rows []upload
		s.Do(t, http.MethodGet, "/api/sessions/"+sid+"/uploads", "", nil, &rows)
		return len(rows) == 0
	}, countdown+10*time.Second, time.Second)

	s.Step(t, "one toast is waiting")
	var notes []notification
	s.Require().Equal(http.StatusOK, s.Do(t, http.MethodGet, "/api/sessions/"+sid+"/notifications", "", nil, &notes))
	s.Require().Len(notes, 1)
	s.Equal("a.log", notes[0].Name)
	s.Equal("File automatically removed after 1 minute", notes[0].Message)
}

func (s *UploadLifecycleSuite) TestManualRemoval() {
	t := s.T()

	s.Step(t, "upload b.log")
	sid := s.openSession(t)
	var accepted upload
	s.Require().Equal(http.StatusAccepted, s.Upload(t, sid, "b.log", logLines, &accepted))
	s.waitForStatus(t, sid, "success")

	s.Step(t, "close the row")
	s.Require().Equal(http.StatusNoContent,
		s.Do(t, http.MethodDelete, "/api/sessions/"+sid+"/uploads/"+accepted.ID, "", nil, nil))

	var rows []upload
	s.Do(t, http.MethodGet, "/api/sessions/"+sid+"/uploads", "", nil, &rows)
	s.Empty(rows)
	var notes []notification
	s.Do(t, http.MethodGet, "/api/sessions/"+sid+"/notifications", "", nil, &notes)
	s.Empty(notes)
}
