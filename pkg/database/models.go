package database

// -----------------------------------------------------------
// DOCUMENTO: Lista de recomendaciones servida a un cliente
// Colección: recommendations
// -----------------------------------------------------------

type RecommendedItem struct {
	ItemID int     `bson:"item_id" json:"item_id"`
	Title  string  `bson:"title" json:"title"`
	Score  float64 `bson:"score" json:"score"`
}

// Subject es el nombre del usuario (by_user) o el título del libro (by_item).
type RecommendationDocument struct {
	ID            string            `bson:"_id" json:"id"`
	Strategy      string            `bson:"strategy" json:"strategy"`
	Subject       string            `bson:"subject" json:"subject"`
	N             int               `bson:"n" json:"n"`
	Recommended   []RecommendedItem `bson:"recommended" json:"recommended"`
	Cached        bool              `bson:"cached" json:"cached"`
	LatencyMS     int64             `bson:"latency_ms" json:"latency_ms"`
	TimestampUnix int64             `bson:"timestamp" json:"timestamp"`
}

// -----------------------------------------------------------
// DOCUMENTO: Log del proceso distribuido
// Colección: logs
// -----------------------------------------------------------

type LogDocument struct {
	Subject       string `bson:"subject" json:"subject"`
	Candidates    int    `bson:"candidates" json:"candidates"`
	NodeCount     int    `bson:"node_count" json:"node_count"`
	LatencyMS     int64  `bson:"latency_ms" json:"latency_ms"`
	TimestampUnix int64  `bson:"timestamp" json:"timestamp"`
}
