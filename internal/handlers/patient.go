package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/requestdata"
	"github.com/ciangeneway-dot/Khumalo/internal/services"
)

type PatientHandler struct {
	log     *logger.Logger
	service services.PatientService
}

func NewPatientHandler(log *logger.Logger, service services.PatientService) *PatientHandler {
	return &PatientHandler{
		log:     log.With("Handler", "PatientHandler"),
		service: service,
	}
}

func (ph *PatientHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var in services.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	patient, err := ph.service.Create(c.Request.Context(), in, rd.UserID)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (ph *PatientHandler) List(c *gin.Context) {
	patients, err := ph.service.List(c.Request.Context())
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, patients)
}

func (ph *PatientHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	patient, err := ph.service.Get(c.Request.Context(), id)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, patient)
}

func (ph *PatientHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	var in services.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	patient, err := ph.service.Update(c.Request.Context(), id, in)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, patient)
}

func (ph *PatientHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := ph.service.Delete(c.Request.Context(), id, rd.UserID); err != nil {
		RespondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
