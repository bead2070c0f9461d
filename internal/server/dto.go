package server

import "careline/internal/domain"

type messagesResponse struct {
	Body []domain.Message `json:"body"`
}

type decisionsResponse struct {
	Body []domain.Decision `json:"body"`
}

type testsResponse struct {
	Body []domain.Test `json:"body"`
}
