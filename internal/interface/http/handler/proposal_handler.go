package handler

import (
	"bufio"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/deals-backend/internal/interface/http/dto"
	"github.com/ignatzorin/deals-backend/internal/interface/http/response"
	"github.com/ignatzorin/deals-backend/internal/usecase/deal"
	"github.com/ignatzorin/deals-backend/internal/usecase/proposal"
)

// Столько байт нужно filetype, чтобы распознать бинарный формат.
const sniffLen = 262

type ProposalHandler struct {
	orchestrator   *deal.Orchestrator
	proposals      *proposal.Lifecycle
	importer       *proposal.Importer
	maxImportBytes int64
}

func NewProposalHandler(
	orchestrator *deal.Orchestrator,
	proposals *proposal.Lifecycle,
	importer *proposal.Importer,
	maxImportBytes int64,
) *ProposalHandler {
	return &ProposalHandler{
		orchestrator:   orchestrator,
		proposals:      proposals,
		importer:       importer,
		maxImportBytes: maxImportBytes,
	}
}

func (h *ProposalHandler) ListVisible(c *gin.Context) {
	proposals, err := h.proposals.ListVisible(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProposalResponses(proposals))
}

func (h *ProposalHandler) ListMine(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposals, err := h.proposals.ListMine(c.Request.Context(), userID, pageFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProposalResponses(proposals))
}

func (h *ProposalHandler) Create(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	var req dto.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	fields, err := req.ToFields()
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.orchestrator.CreateProposal(c.Request.Context(), userID, fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToProposalResponse(created))
}

// Import принимает CSV в поле multipart "file". Бинарные файлы отклоняются до разбора.
func (h *ProposalHandler) Import(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes+1<<10)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "файл слишком большой")
			return
		}
		response.BadRequest(c, "файл обязателен")
		return
	}
	if header.Size > h.maxImportBytes {
		response.PayloadTooLarge(c, "файл слишком большой")
		return
	}

	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, sniffLen)
	head, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		response.BadRequest(c, "ожидается CSV, получен "+kind.MIME.Value)
		return
	}

	result, err := h.importer.Import(c.Request.Context(), userID, reader)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ProposalHandler) Get(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.proposals.Get(c.Request.Context(), proposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProposalResponse(p))
}

func (h *ProposalHandler) Update(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	fields, err := req.ToFields()
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.proposals.Update(c.Request.Context(), proposalID, userID, fields)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProposalResponse(updated))
}

func (h *ProposalHandler) Pause(c *gin.Context) {
	h.changeStatus(c, h.proposals.Pause)
}

func (h *ProposalHandler) Resume(c *gin.Context) {
	h.changeStatus(c, h.proposals.Resume)
}

func (h *ProposalHandler) changeStatus(c *gin.Context, apply statusChange) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	p, err := apply(c.Request.Context(), proposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToProposalResponse(p))
}

func (h *ProposalHandler) Delete(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}
	proposalID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	res, err := h.orchestrator.DeleteProposal(c.Request.Context(), proposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDeleteProposalResponse(res))
}
