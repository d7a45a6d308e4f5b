package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxUploadSize = 10 << 20

// UploadImage stores the multipart "image" field and returns its URL.
func (h *Handler) UploadImage(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No image file provided"})
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		fail(c, "UploadImage", err, "", "Could not upload image")
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Only image files are allowed"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	name := primitive.NewObjectID().Hex() + "-" + cleanFileName(header.Filename)
	body := io.MultiReader(bytes.NewReader(head), file)

	url, err := h.images.Save(ctx, name, contentType, body, header.Size)
	if err != nil {
		fail(c, "UploadImage", err, "", "Could not upload image")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// cleanFileName keeps the base name and replaces anything unusual with '_'.
func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if clean == "" || clean == "." || clean == ".." {
		return "image"
	}
	return clean
}
