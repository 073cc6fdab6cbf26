package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

// taskRequest is the JSON form of a task write. Multipart requests carry
// the same fields as form values, with "checklist" and "assignees"
// repeated and the file under "attachment".
type taskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	Priority    string   `json:"priority"`
	Checklist   []string `json:"checklist"`
	AssigneeIDs []string `json:"assignee_ids"`
}

// parseDueDate accepts a calendar date or an RFC 3339 timestamp.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &tracker.ValidationError{
			Field: "due_date", Message: "must be YYYY-MM-DD or RFC 3339",
		}
	}
	return t, nil
}

// readTaskInput decodes a JSON or multipart task write. The returned
// closer releases the uploaded file, if any.
func readTaskInput(c echo.Context) (tracker.TaskInput, io.Closer, error) {
	var req taskRequest
	var upload *tracker.Upload
	var closer io.Closer = io.NopCloser(nil)

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return tracker.TaskInput{}, nil, badRequest("invalid multipart form")
		}
		req = taskRequest{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			DueDate:     c.FormValue("due_date"),
			Priority:    c.FormValue("priority"),
			Checklist:   form.Value["checklist"],
			AssigneeIDs: form.Value["assignees"],
		}
		if files := form.File["attachment"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return tracker.TaskInput{}, nil, badRequest("unreadable attachment")
			}
			upload = &tracker.Upload{Name: files[0].Filename, Content: f}
			closer = f
		}
	} else if err := c.Bind(&req); err != nil {
		return tracker.TaskInput{}, nil, badRequest("invalid JSON body")
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		closer.Close()
		return tracker.TaskInput{}, nil, err
	}

	return tracker.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		Priority:    model.Priority(strings.ToLower(req.Priority)),
		Checklist:   req.Checklist,
		AssigneeIDs: req.AssigneeIDs,
		Attachment:  upload,
	}, closer, nil
}

func (s *Server) listTasks(c echo.Context) error {
	opts := tracker.ListOptions{
		Status:   model.TaskStatus(c.QueryParam("status")),
		Priority: model.Priority(c.QueryParam("priority")),
		Query:    c.QueryParam("q"),
		SortBy:   c.QueryParam("sort"),
		SortDesc: strings.EqualFold(c.QueryParam("order"), "desc"),
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		if v := c.QueryParam(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return badRequest(name + " must be a non-negative integer")
			}
			*dst = n
		}
	}

	tasks, err := s.svc.ListVisibleTasks(c.Request().Context(), callerFrom(c), opts)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c echo.Context) error {
	in, closer, err := readTaskInput(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	id, err := s.svc.CreateTask(c.Request().Context(), callerFrom(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (s *Server) getTask(c echo.Context) error {
	detail, err := s.svc.GetTask(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) editTask(c echo.Context) error {
	in, closer, err := readTaskInput(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := s.svc.EditTask(c.Request().Context(), callerFrom(c), c.Param("id"), in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.svc.DeleteTask(c.Request().Context(), callerFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updateTaskStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	st := model.TaskStatus(req.Status)
	if err := s.svc.UpdateTaskStatus(c.Request().Context(), callerFrom(c), c.Param("id"), st); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) downloadAttachment(c echo.Context) error {
	rc, name, err := s.svc.OpenAttachment(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (s *Server) toggleChecklistItem(c echo.Context) error {
	res, err := s.svc.ToggleChecklistItem(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getDashboard(c echo.Context) error {
	sum, err := s.svc.Dashboard(c.Request().Context(), callerFrom(c))
	if err != nil {
		return err
	}
	if sum.Recent == nil {
		sum.Recent = []model.Task{}
	}
	return c.JSON(http.StatusOK, sum)
}
