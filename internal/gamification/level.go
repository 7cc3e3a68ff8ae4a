// Package gamification 将累计经验换算为等级与进度。
package gamification

import (
	"fmt"
	"math"
)

const (
	CurveLinear     = "linear"
	CurveTriangular = "triangular"
)

// Config 对应 GAMIFICATION_MAX_LEVEL / GAMIFICATION_MAX_XP
type Config struct {
	MaxLevel int
	MaxXP    int64
	Curve    string
}

func (c Config) Validate() error {
	if c.MaxLevel < 2 {
		return fmt.Errorf("max level must be at least 2, got %d", c.MaxLevel)
	}
	if c.MaxXP <= 0 {
		return fmt.Errorf("max xp must be positive, got %d", c.MaxXP)
	}
	switch c.Curve {
	case "", CurveLinear, CurveTriangular:
	default:
		return fmt.Errorf("unknown level curve %q", c.Curve)
	}
	return nil
}

// Curve 返回达到某等级所需的累计经验，Threshold(1)=0，Threshold(MaxLevel)=MaxXP
type Curve interface {
	Threshold(level int) float64
}

// linearCurve 每级所需经验相同
type linearCurve struct {
	maxLevel int
	maxXP    float64
}

func (c linearCurve) Threshold(level int) float64 {
	return c.maxXP * float64(level-1) / float64(c.maxLevel-1)
}

// triangularCurve 第 k 级升到 k+1 级需要 base*k 经验
type triangularCurve struct {
	base float64
}

func newTriangularCurve(maxLevel int, maxXP float64) triangularCurve {
	return triangularCurve{base: 2 * maxXP / float64(maxLevel*(maxLevel-1))}
}

func (c triangularCurve) Threshold(level int) float64 {
	n := float64(level - 1)
	return c.base * n * (n + 1) / 2
}

// Progress 某一经验值对应的等级进度
type Progress struct {
	TotalXP       int64   `json:"totalXp"`
	Level         int     `json:"level"`
	MaxLevel      int     `json:"maxLevel"`
	LevelStartXP  int64   `json:"levelStartXp"`
	NextLevelXP   int64   `json:"nextLevelXp"`
	XPIntoLevel   int64   `json:"xpIntoLevel"`
	XPToNextLevel int64   `json:"xpToNextLevel"`
	Progress      float64 `json:"progress"`
	IsMaxLevel    bool    `json:"isMaxLevel"`
}

type Engine struct {
	cfg   Config
	curve Curve
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Curve == "" {
		cfg.Curve = CurveLinear
	}

	var curve Curve
	switch cfg.Curve {
	case CurveTriangular:
		curve = newTriangularCurve(cfg.MaxLevel, float64(cfg.MaxXP))
	default:
		curve = linearCurve{maxLevel: cfg.MaxLevel, maxXP: float64(cfg.MaxXP)}
	}

	return &Engine{cfg: cfg, curve: curve}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// threshold 对浮点误差做收敛，保证两端精确
func (e *Engine) threshold(level int) float64 {
	switch {
	case level <= 1:
		return 0
	case level >= e.cfg.MaxLevel:
		return float64(e.cfg.MaxXP)
	}
	return e.curve.Threshold(level)
}

// LevelFor 返回 xp 对应的等级（1..MaxLevel）
func (e *Engine) LevelFor(xp int64) int {
	if xp <= 0 {
		return 1
	}
	x := float64(xp)
	level := 1
	for l := 2; l <= e.cfg.MaxLevel; l++ {
		if e.threshold(l) > x {
			break
		}
		level = l
	}
	return level
}

func (e *Engine) Compute(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}

	level := e.LevelFor(xp)
	p := Progress{
		TotalXP:  xp,
		Level:    level,
		MaxLevel: e.cfg.MaxLevel,
	}

	start := e.threshold(level)
	p.LevelStartXP = int64(math.Ceil(start))

	if level >= e.cfg.MaxLevel {
		p.IsMaxLevel = true
		p.NextLevelXP = e.cfg.MaxXP
		p.XPIntoLevel = xp - p.LevelStartXP
		p.Progress = 1
		return p
	}

	next := e.threshold(level + 1)
	p.NextLevelXP = int64(math.Ceil(next))
	p.XPIntoLevel = xp - p.LevelStartXP
	p.XPToNextLevel = p.NextLevelXP - xp

	fraction := (float64(xp) - start) / (next - start)
	p.Progress = math.Max(0, math.Min(1, fraction))
	return p
}

// Thresholds 各等级的累计经验下限（向上取整），下标 0 对应 1 级
func (e *Engine) Thresholds() []int64 {
	out := make([]int64, e.cfg.MaxLevel)
	for l := 1; l <= e.cfg.MaxLevel; l++ {
		out[l-1] = int64(math.Ceil(e.threshold(l)))
	}
	return out
}
