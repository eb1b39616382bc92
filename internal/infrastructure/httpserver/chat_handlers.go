package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/perchnet/user-service/internal/core/domain/chat"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver/helpers"
)

type openChatRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) openChat(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req openChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	conversation, err := s.chatService.OpenChat(c.Request().Context(), userID, req.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, conversation)
}

func (s *Server) listChats(c echo.Context) error {
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	chats, err := s.chatService.ListChats(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	if chats == nil {
		chats = []*chat.Chat{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"chats": chats})
}

func (s *Server) sendMessage(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chat ID")
	}
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	var req chat.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sent, err := s.chatService.SendMessage(c.Request().Context(), chatID, userID, req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sent)
}

func (s *Server) listMessages(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chat ID")
	}
	userID, err := helpers.GetUserIDFromContext(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	messages, err := s.chatService.ListMessages(c.Request().Context(), chatID, userID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	if messages == nil {
		messages = []*chat.Message{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}
