package core

const avgCount = 30

// Metrics keeps a rolling average of frame times and the last measured FPS.
type Metrics struct {
	frameAvgCounter    int
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Update takes the elapsed frame time in seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAvgCounter] = frameMS
	if m.frameAvgCounter == avgCount-1 {
		m.msAvg = 0
		for i := 0; i < avgCount; i++ {
			m.msAvg += m.msTimes[i]
		}
		m.msAvg /= float64(avgCount)
	}
	m.frameAvgCounter = (m.frameAvgCounter + 1) % avgCount

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
