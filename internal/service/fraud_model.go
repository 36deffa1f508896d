package service

import "math"

// claimSample is one labelled historical claim used to fit the statistical
// component of the fraud score.
type claimSample struct {
	AmountCents int64
	ClaimCount  int
	Fraud       bool
}

// seedClaimSamples is the bootstrap training set used until enough labelled
// production claims exist to refit the model.
var seedClaimSamples = []claimSample{
	{AmountCents: 500_000, ClaimCount: 1, Fraud: false},   // R5,000
	{AmountCents: 10_000_000, ClaimCount: 5, Fraud: true}, // R100,000
	{AmountCents: 2_000_000, ClaimCount: 0, Fraud: false}, // R20,000
	{AmountCents: 15_000_000, ClaimCount: 3, Fraud: true}, // R150,000
}

// claimModel is a two-feature logistic regression over claim amount and the
// claimant's prior claim count. Training is deterministic: fixed samples,
// fixed epoch count, fixed learning rate, zero-initialized weights.
type claimModel struct {
	wAmount float64
	wCount  float64
	bias    float64
}

const (
	modelEpochs       = 2000
	modelLearningRate = 0.5

	// Feature scales keep both inputs near [0, 1.5] for the seed data.
	amountScaleCents = 10_000_000 // R100,000
	countScale       = 5
)

// fitClaimModel trains the model by batch gradient descent on the given
// samples.
func fitClaimModel(samples []claimSample) *claimModel {
	m := &claimModel{}
	n := float64(len(samples))
	if n == 0 {
		return m
	}
	for epoch := 0; epoch < modelEpochs; epoch++ {
		var gradAmount, gradCount, gradBias float64
		for _, s := range samples {
			x1, x2 := modelFeatures(s.AmountCents, s.ClaimCount)
			y := 0.0
			if s.Fraud {
				y = 1.0
			}
			p := sigmoid(m.wAmount*x1 + m.wCount*x2 + m.bias)
			diff := p - y
			gradAmount += diff * x1
			gradCount += diff * x2
			gradBias += diff
		}
		m.wAmount -= modelLearningRate * gradAmount / n
		m.wCount -= modelLearningRate * gradCount / n
		m.bias -= modelLearningRate * gradBias / n
	}
	return m
}

// Predict returns the model's fraud probability for a claim.
func (m *claimModel) Predict(amountCents int64, claimCount int) float64 {
	x1, x2 := modelFeatures(amountCents, claimCount)
	return sigmoid(m.wAmount*x1 + m.wCount*x2 + m.bias)
}

func modelFeatures(amountCents int64, claimCount int) (float64, float64) {
	return float64(amountCents) / amountScaleCents, float64(claimCount) / countScale
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
