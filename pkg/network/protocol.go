// Package network define el protocolo gob entre la API y los nodos de
// puntuación. Cada conexión TCP lleva una sola petición y una sola respuesta.
package network

import (
	"encoding/gob"
	"net"
	"time"
)

// -------------------- TIPOS DE MENSAJE --------------------

// TaskRequest: tarea para un nodo, puntuar los ítems candidatos de un usuario.
type TaskRequest struct {
	UserID  int
	ItemIDs []int
}

// TaskResponse: estimaciones alineadas con TaskRequest.ItemIDs. Err se
// llena cuando el nodo no pudo puntuar la tarea.
type TaskResponse struct {
	Estimates []float64
	Err       string
}

// -------------------- UTILIDADES --------------------

// Enviar mensaje genérico
func Send(conn net.Conn, v any) error {
	return gob.NewEncoder(conn).Encode(v)
}

// Recibir mensaje genérico
func Receive(conn net.Conn, v any) error {
	return gob.NewDecoder(conn).Decode(v)
}

// Aplicar deadline a la conexión (solo si d > 0)
func SetDeadline(conn net.Conn, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return conn.SetDeadline(time.Now().Add(d))
}

func init() {
	gob.Register(TaskRequest{})
	gob.Register(TaskResponse{})
}
