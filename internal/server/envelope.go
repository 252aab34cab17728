package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/caremarket/pkg/db/pagination"
)

// DataResponse is the success envelope of single resources.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse is the success envelope of paginated collections.
type ListResponse struct {
	Data     any                 `json:"data"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type ErrorResponse struct {
	Error errorBody `json:"error"`
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, DataResponse{Data: data})
}

func respondList(c *gin.Context, data any, pageInfo pagination.PageInfo) {
	c.JSON(http.StatusOK, ListResponse{Data: data, PageInfo: pageInfo})
}
