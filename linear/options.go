package linear

// Option は Ridge / RidgeCV の設定を変更する関数
type Option func(*config)

type config struct {
	fitIntercept bool
	alphas       []float64
}

func defaultConfig() config {
	return config{fitIntercept: true, alphas: []float64{0.1, 1.0, 10.0}}
}

// WithFitIntercept は切片を推定するかどうかを設定する
func WithFitIntercept(fit bool) Option {
	return func(c *config) {
		c.fitIntercept = fit
	}
}

// WithAlphas は RidgeCV が探索する正則化パラメータの候補を設定する
func WithAlphas(alphas ...float64) Option {
	return func(c *config) {
		c.alphas = append([]float64(nil), alphas...)
	}
}
