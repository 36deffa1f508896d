package service

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"regexp"

	"stokvel-ledger/config"
	"stokvel-ledger/internal/core/domain"
	"stokvel-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Fraud indicator messages surfaced to reviewers.
const (
	indicatorHighAmount      = "Unusually high claim amount"
	indicatorFrequentClaims  = "Multiple recent claims"
	indicatorNewBeneficiary  = "Beneficiary account created recently"
	indicatorDuplicatedDates = "Supporting document contains duplicated dates"
	indicatorImageHighDetail = "Supporting image shows signs of manipulation"
	indicatorUnreadableImage = "Supporting image could not be decoded"
)

// Weight each triggered rule contributes on top of the model probability.
var ruleWeights = map[string]float64{
	indicatorHighAmount:      0.30,
	indicatorFrequentClaims:  0.30,
	indicatorNewBeneficiary:  0.25,
	indicatorDuplicatedDates: 0.20,
	indicatorImageHighDetail: 0.20,
	indicatorUnreadableImage: 0.10,
}

var datePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// FraudScorerImpl implements ports.FraudScorer with a seed-trained logistic
// model blended with deterministic rule checks.
type FraudScorerImpl struct {
	cfg   config.FraudConfig
	model *claimModel
	log   zerolog.Logger
}

// NewFraudScorer fits the claim model and returns a ready scorer.
func NewFraudScorer(cfg config.FraudConfig, log zerolog.Logger) *FraudScorerImpl {
	return &FraudScorerImpl{
		cfg:   cfg,
		model: fitClaimModel(seedClaimSamples),
		log:   log,
	}
}

// Score returns a fraud probability in [0, 1] and the triggered indicators
// in a fixed order. Identical input always yields identical output.
func (s *FraudScorerImpl) Score(_ context.Context, in ports.ScoreInput) (float64, []string) {
	score := s.model.Predict(in.Amount.Cents, in.PriorClaimCount)

	var indicators []string
	if in.Amount.Cents > s.cfg.HighAmountCents {
		indicators = append(indicators, indicatorHighAmount)
	}
	if in.RecentClaimCount > s.cfg.RecentClaimMax {
		indicators = append(indicators, indicatorFrequentClaims)
	}
	if in.BeneficiaryCreatedAt != nil {
		ageDays := in.Now.Sub(*in.BeneficiaryCreatedAt).Hours() / 24
		if ageDays < float64(s.cfg.NewBeneficiaryDays) {
			indicators = append(indicators, indicatorNewBeneficiary)
		}
	}
	indicators = append(indicators, s.checkDocuments(in.Documents)...)

	// Each rule closes a share of the remaining headroom so the score
	// stays inside [0, 1] and rule order does not matter.
	for _, ind := range indicators {
		score += (1 - score) * ruleWeights[ind]
	}

	return score, indicators
}

// checkDocuments runs format checks over the uploaded documents. One
// indicator per kind at most, however many documents trip it.
func (s *FraudScorerImpl) checkDocuments(docs []domain.ClaimDocument) []string {
	var duplicatedDates, manipulated, unreadable bool
	for _, doc := range docs {
		switch doc.Kind {
		case domain.DocumentKindText:
			if hasDuplicatedDates(doc.Data) {
				duplicatedDates = true
			}
		case domain.DocumentKindImage:
			density, err := edgeDensity(doc.Data)
			if err != nil {
				s.log.Warn().Err(err).Str("document", doc.Name).Msg("claim image decode failed")
				unreadable = true
				continue
			}
			if density > s.cfg.EdgeDensityCutoff {
				manipulated = true
			}
		}
	}

	var indicators []string
	if duplicatedDates {
		indicators = append(indicators, indicatorDuplicatedDates)
	}
	if manipulated {
		indicators = append(indicators, indicatorImageHighDetail)
	}
	if unreadable {
		indicators = append(indicators, indicatorUnreadableImage)
	}
	return indicators
}

// hasDuplicatedDates reports whether the same dd/mm/yyyy date string occurs
// more than once in the document text. Duplicated dates are a common
// copy-paste artifact in forged statements.
func hasDuplicatedDates(text []byte) bool {
	seen := make(map[string]struct{})
	for _, date := range datePattern.FindAll(text, -1) {
		key := string(date)
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

// edgeDensity decodes a PNG or JPEG and returns the fraction of pixels
// sitting on a strong luminance edge. Heavily edited composites tend to
// produce abnormally busy edge maps.
func edgeDensity(data []byte) (float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return 0, nil
	}

	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
		}
	}

	const edgeThreshold = 40.0
	edges := 0
	total := 0
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			dx := lum[y*w+x+1] - lum[y*w+x]
			dy := lum[(y+1)*w+x] - lum[y*w+x]
			total++
			if dx*dx+dy*dy > edgeThreshold*edgeThreshold {
				edges++
			}
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(edges) / float64(total), nil
}
