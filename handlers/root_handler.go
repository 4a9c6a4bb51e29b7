package handlers

import "net/http"

// WelcomeHandler обрабатывает GET /
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "Welcome to Tournify API!"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EventsHandler обрабатывает GET /events. Эндпоинт оставлен для старых
// клиентов и только указывает на /tournaments/.
func EventsHandler(w http.ResponseWriter, r *http.Request) {
	resp := jsonResponse{
		"message":              "No events endpoint available",
		"tournaments_endpoint": "/tournaments/",
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// NotFoundHandler отвечает JSON-ошибкой на неизвестные маршруты.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	notFoundResponse(w, r, "")
}
