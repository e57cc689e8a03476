package domain

import (
	"context"
	"errors"
	"time"
)

type YearMode string

const (
	YearCurrent  YearMode = "current"
	YearPrevious YearMode = "previous"
)

type BoundsMode string

const (
	BoundsAuto   BoundsMode = "auto"
	BoundsCustom BoundsMode = "custom"
	BoundsGlobal BoundsMode = "global"
)

// Dataset describes one configured heatmap input table.
type Dataset struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	DefaultValueColumn string   `json:"default_value_column"`
	ValueColumns       []string `json:"value_columns"`
	Rows               int      `json:"rows"`
}

// RenderRequest selects what to draw. Zero values fall back to the dataset
// and dashboard defaults.
type RenderRequest struct {
	Dataset     string
	Start       time.Time
	End         time.Time
	ValueColumn string
	Normalize   bool
	Year        YearMode
	ColorScale  string
	Bounds      BoundsMode
	ColorMin    *float64
	ColorMax    *float64
}

type Tick struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type Legend struct {
	Orientation string `json:"orientation"`
	Label       string `json:"label"`
}

type ColorBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Diagnostics struct {
	TotalCells     int `json:"total_cells"`
	MissingCells   int `json:"missing_cells"`
	SanitizedCells int `json:"sanitized_cells"`
	SkippedRows    int `json:"skipped_rows"`
}

// RenderModel is everything a chart backend needs. Rows run from the latest
// stay date to the earliest so the vertical axis reads top-down.
type RenderModel struct {
	Dataset     string       `json:"dataset"`
	Title       string       `json:"title"`
	ValueColumn string       `json:"value_column"`
	Year        YearMode     `json:"year"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	HasData     bool         `json:"has_data"`
	Message     string       `json:"message,omitempty"`
	Normalized  bool         `json:"normalized"`
	Rows        []string     `json:"rows,omitempty"`
	Columns     []string     `json:"columns,omitempty"`
	Cells       [][]Cell     `json:"cells,omitempty"`
	XTicks      []Tick       `json:"x_ticks,omitempty"`
	YTicks      []Tick       `json:"y_ticks,omitempty"`
	XLabel      string       `json:"x_label"`
	YLabel      string       `json:"y_label"`
	Legend      Legend       `json:"legend"`
	ColorScale  string       `json:"color_scale"`
	BoundsMode  BoundsMode   `json:"bounds_mode"`
	ColorBounds *ColorBounds `json:"color_bounds,omitempty"`
	Diagnostics Diagnostics  `json:"diagnostics"`
}

type BoundsRequest struct {
	Start     time.Time
	End       time.Time
	Normalize bool
	Year      YearMode
}

type Service interface {
	ListDatasets(ctx context.Context) ([]Dataset, error)
	Render(ctx context.Context, req RenderRequest) (*RenderModel, error)
	GlobalBounds(ctx context.Context, req BoundsRequest) (*ColorBounds, error)
}

var (
	ErrDatasetNotFound    = errors.New("dataset_not_found")
	ErrDatasetUnavailable = errors.New("dataset_unavailable")
	ErrInvalidRange       = errors.New("invalid_range")
	ErrInvalidValueColumn = errors.New("invalid_value_column")
	ErrInvalidColorScale  = errors.New("invalid_color_scale")
	ErrInvalidBounds      = errors.New("invalid_bounds")
	ErrInvalidYear        = errors.New("invalid_year")
)
