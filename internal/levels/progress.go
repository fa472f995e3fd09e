package levels

type Progress struct {
	Level int
	XP    int64
	// Floor and Next are the thresholds of Level and Level+1.
	Floor int64
	Next  int64
	Ratio float64
}

func ProgressFor(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelForXP(xp)
	p := Progress{
		Level: level,
		XP:    xp,
		Floor: XPForLevel(level),
		Next:  XPForLevel(level + 1),
	}
	if span := p.Next - p.Floor; span > 0 {
		p.Ratio = float64(xp-p.Floor) / float64(span)
	} else {
		p.Ratio = 1
	}
	return p
}

// Bar renders the ratio as a fixed width text bar.
func (p Progress) Bar(width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(p.Ratio * float64(width))
	if filled > width {
		filled = width
	}
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return string(bar)
}
