// Command batch genera las top-N recomendaciones de una muestra de usuarios
// con distintos números de workers, y escribe un CSV por usuario más la
// tabla de speedup. Con -export reescribe además los artefactos en gob.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bookrec/internal/bootstrap"
	"bookrec/internal/config"
	"bookrec/internal/logging"
	"bookrec/internal/model"
	"bookrec/internal/recommend"
	"bookrec/internal/similarity"
)

func main() {
	outDir := flag.String("out", "recommendation", "output directory")
	sample := flag.Int("users", 100, "number of users to sample")
	topN := flag.Int("n", 10, "recommendations per user")
	workerList := flag.String("workers", "1,2,4,8,16", "comma-separated worker counts to time")
	exportDir := flag.String("export", "", "also write the loaded similarity table and model as gob artifacts to this directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.WithComponent("batch")

	workers, err := parseWorkers(*workerList)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse -workers")
	}

	ctx := context.Background()
	data, err := bootstrap.Load(ctx, cfg.Data, logging.Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("load artifacts")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output directory")
	}
	if *exportDir != "" {
		if err := exportGob(*exportDir, data); err != nil {
			logger.Fatal().Err(err).Msg("export artifacts")
		}
		logger.Info().Str("dir", *exportDir).Msg("gob artifacts exported")
	}

	users := data.Ratings.UserIDs()
	if len(users) == 0 {
		logger.Fatal().Msg("no users with ratings")
	}
	users = users[:min(*sample, len(users))]

	speedup := [][]string{{"workers", "elapsed_seconds"}}
	for _, w := range workers {
		engine, err := bootstrap.Engine(cfg, data, model.Parallel(data.Model, w), logging.Logger())
		if err != nil {
			logger.Fatal().Err(err).Msg("build engine")
		}

		start := time.Now()
		if err := run(ctx, engine, users, *topN, *outDir); err != nil {
			logger.Fatal().Err(err).Int("workers", w).Msg("batch run")
		}
		elapsed := time.Since(start)
		speedup = append(speedup, []string{strconv.Itoa(w), fmt.Sprintf("%.6f", elapsed.Seconds())})
		logger.Info().Int("workers", w).Int("users", len(users)).Dur("elapsed", elapsed).Msg("pass completed")
	}

	if err := writeCSV(filepath.Join(*outDir, "speedup.csv"), speedup); err != nil {
		logger.Fatal().Err(err).Msg("write speedup table")
	}
	logger.Info().Str("dir", *outDir).Msg("results written")
}

// -------------------- GENERAR RECOMENDACIONES --------------------

func run(ctx context.Context, engine *recommend.Engine, users []int, n int, outDir string) error {
	for _, u := range users {
		recs, err := engine.ByUser(ctx, u, n)
		if err != nil {
			return fmt.Errorf("user %d: %w", u, err)
		}
		rows := [][]string{{"user_id", "item_id", "title", "predicted_rating"}}
		for _, r := range recs {
			rows = append(rows, []string{
				strconv.Itoa(u), strconv.Itoa(r.ID), r.Title, fmt.Sprintf("%.4f", r.Score),
			})
		}
		path := filepath.Join(outDir, fmt.Sprintf("recommendations_user_%d.csv", u))
		if err := writeCSV(path, rows); err != nil {
			return err
		}
	}
	return nil
}

// -------------------- EXPORTAR ARTEFACTOS --------------------

// Mismos nombres que usa la configuración por defecto
const (
	similarityGob = "item_similarity_topk.gob"
	modelGob      = "svd_model.gob"
)

// Guardar tabla de similitud y modelo en gob (carga más rápida)
func exportGob(dir string, data *bootstrap.Data) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := similarity.Save(filepath.Join(dir, similarityGob), data.Index); err != nil {
		return fmt.Errorf("export similarity: %w", err)
	}
	if err := model.Save(filepath.Join(dir, modelGob), data.Model); err != nil {
		return fmt.Errorf("export model: %w", err)
	}
	return nil
}

// -------------------- UTILIDAD: exportar a CSV --------------------

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func parseWorkers(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		w, err := strconv.Atoi(p)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("invalid worker count %q", p)
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no worker counts in %q", s)
	}
	return out, nil
}
