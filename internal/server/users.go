package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string     `json:"token"`
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

type userRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r userRequest) profile() tracker.ProfileInput {
	return tracker.ProfileInput{FullName: r.FullName, Email: r.Email, Password: r.Password}
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	caller, err := s.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(caller)
	if err != nil {
		return err
	}

	s.requestLog(c).WithField("user_id", caller.UserID).Info("user signed in")
	return c.JSON(http.StatusOK, loginResponse{Token: token, UserID: caller.UserID, Role: caller.Role})
}

func (s *Server) getMe(c echo.Context) error {
	caller := callerFrom(c)
	u, err := s.svc.GetUser(c.Request().Context(), caller, caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) updateMe(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	caller := callerFrom(c)
	if err := s.svc.UpdateProfile(c.Request().Context(), caller, caller.UserID, req.profile()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listUsers(c echo.Context) error {
	users, err := s.svc.ListUsers(c.Request().Context(), callerFrom(c))
	if err != nil {
		return err
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) createUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	id, err := s.svc.CreateUser(c.Request().Context(), callerFrom(c), tracker.UserInput{
		FullName: req.FullName, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (s *Server) getUser(c echo.Context) error {
	u, err := s.svc.GetUser(c.Request().Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) editUser(c echo.Context) error {
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid JSON body")
	}

	if err := s.svc.EditUser(c.Request().Context(), callerFrom(c), c.Param("id"), req.profile()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteUser(c echo.Context) error {
	if err := s.svc.DeleteUser(c.Request().Context(), callerFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listNotices(c echo.Context) error {
	notices, err := s.svc.UnreadNotices(c.Request().Context(), callerFrom(c))
	if err != nil {
		return err
	}
	if notices == nil {
		notices = []model.Notice{}
	}
	return c.JSON(http.StatusOK, notices)
}

func (s *Server) markNoticesRead(c echo.Context) error {
	if err := s.svc.MarkNoticesRead(c.Request().Context(), callerFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
