package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"docviewer/internal/model"
	"docviewer/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// PageConfig holds values rendered into the index page.
type PageConfig struct {
	Title     string
	ViewerURL string
}

type renderResponse struct {
	ViewingSessionID string `json:"viewingSessionId"`
}

type documentList struct {
	Data  []model.Document `json:"data"`
	Total int              `json:"total"`
}

type indexData struct {
	Title            string
	ViewingSessionID string
	DocumentName     string
	ViewerURL        string
	Documents        []model.Document
}

// Index opens a session for the default document and renders the viewer page
// with the session id and the document listing.
//
//	@Summary		Viewer page
//	@Description	Opens a viewing session for the default document and renders the viewer page
//	@Tags			viewer
//	@Produce		html
//	@Success		200
//	@Failure		502	{object}	errorPayload
//	@Router			/ [get]
func Index(svc service.ViewingService, page PageConfig) fiber.Handler {
	if page.Title == "" {
		page.Title = "Hello PrizmDoc Viewer!"
	}
	return func(c *fiber.Ctx) error {
		docs, err := svc.Documents(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		sess, err := svc.OpenDefault(c.UserContext())
		if err != nil {
			return writeOpenError(c, err)
		}

		var buf bytes.Buffer
		if err := indexTemplate.Execute(&buf, indexData{
			Title:            page.Title,
			ViewingSessionID: sess.ID,
			DocumentName:     sess.DisplayName,
			ViewerURL:        page.ViewerURL,
			Documents:        docs,
		}); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Type("html", "utf-8")
		return c.Send(buf.Bytes())
	}
}

// RenderDocument validates the requested document and answers with the id of
// a new viewing session. The source upload continues after the response.
//
//	@Summary		Open a document
//	@Description	Scans the named document for active content and opens a viewing session. The source upload continues after the response.
//	@Tags			viewer
//	@Produce		json
//	@Param			file	path		string	true	"Document file name"
//	@Success		200		{object}	renderResponse
//	@Failure		400		{object}	errorPayload
//	@Failure		404		{object}	errorPayload
//	@Failure		502		{object}	errorPayload
//	@Router			/render/{file} [get]
func RenderDocument(svc service.ViewingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := fileParam(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILENAME", "invalid document name")
		}

		sess, err := svc.OpenDocument(c.UserContext(), file)
		if err != nil {
			return writeOpenError(c, err)
		}
		return c.JSON(renderResponse{ViewingSessionID: sess.ID})
	}
}

// fileParam returns the percent-decoded :file param. Fiber keeps params
// escaped, while the index page links names through URL escaping.
func fileParam(c *fiber.Ctx) (string, error) {
	return decodeFileName(c.Params("file"))
}

// decodeFileName unescapes a raw path segment. The result is copied because
// params are backed by fasthttp buffers that are reused after the handler
// returns, and the name outlives the request in the upload.
func decodeFileName(raw string) (string, error) {
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	return utils.CopyString(name), nil
}

// ListDocuments returns the document store listing.
//
//	@Summary	List documents
//	@Tags		documents
//	@Produce	json
//	@Success	200	{object}	documentList
//	@Failure	500	{object}	errorPayload
//	@Router		/documents [get]
func ListDocuments(svc service.ViewingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.Documents(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(documentList{Data: docs, Total: len(docs)})
	}
}

// GetSession returns the recorded state of a viewing session.
//
//	@Summary	Viewing session state
//	@Tags		sessions
//	@Produce	json
//	@Param		id	path		string	true	"Viewing session id"
//	@Success	200	{object}	model.ViewingSession
//	@Failure	404	{object}	errorPayload
//	@Router		/sessions/{id} [get]
func GetSession(svc service.ViewingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := svc.Session(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				return writeError(c, fiber.StatusNotFound, "SESSION_NOT_FOUND", "viewing session not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(sess)
	}
}
