package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/prolink-backend/internal/dto"
	"github.com/ignatzorin/prolink-backend/internal/http/handlers/common"
	"github.com/ignatzorin/prolink-backend/internal/storage"
)

// AttachmentHandler загрузка вложений: материалы заявок, результаты работ и
// доказательства по спорам. Возвращённый относительный путь клиент передаёт
// в соответствующие операции.
type AttachmentHandler struct {
	storage *storage.FileStorage
}

// NewAttachmentHandler создаёт хэндлер вложений.
func NewAttachmentHandler(st *storage.FileStorage) *AttachmentHandler {
	return &AttachmentHandler{storage: st}
}

// Upload POST /attachments
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось открыть файл")
		return
	}
	defer f.Close()

	path, size, err := h.storage.Save(c.Request.Context(), userID, fileHeader.Filename, f)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusCreated, dto.UploadResponse{Path: path, Size: size})
}
