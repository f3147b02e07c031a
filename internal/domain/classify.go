package domain

// Classify scores the record's available factors and keeps the worst one.
// It fails with ErrInsufficientData when no factor is available.
func Classify(rec ObservationRecord) (RiskAssessment, error) {
	inputs := []struct {
		factor Factor
		value  *float64
		bucket func(float64) Bucket
	}{
		{FactorWaveHeight, rec.WaveHeightM, waveBucket},
		{FactorWindSpeed, rec.WindSpeedKt, windBucket},
		{FactorCurrentVelocity, rec.CurrentVelocityKmh, currentBucket},
		{FactorVisibility, rec.VisibilityNm, visibilityBucket},
	}

	var a RiskAssessment
	for _, in := range inputs {
		if !usable(in.value) {
			continue
		}
		b := in.bucket(*in.value)
		fs := FactorScore{Factor: in.factor, Value: *in.value, Bucket: b, SubScore: b.SubScore()}
		a.Factors = append(a.Factors, fs)
		a.Score = max(a.Score, fs.SubScore)
		if fs.SubScore > 0 {
			a.TriggeredFactors = append(a.TriggeredFactors, fs.Reason())
		}
	}

	if len(a.Factors) == 0 {
		return RiskAssessment{}, ErrInsufficientData
	}
	if len(a.Factors) == 1 {
		a.TriggeredFactors = append(a.TriggeredFactors,
			"Assessment based on "+a.Factors[0].Factor.Label()+" only; other factors unavailable")
	}
	a.Level = LevelForScore(a.Score)
	return a, nil
}

func waveBucket(m float64) Bucket {
	switch {
	case m > 4.0:
		return BucketSevere
	case m >= 2.5:
		return BucketHigh
	case m >= 1.5:
		return BucketModerate
	default:
		return BucketLow
	}
}

func windBucket(kt float64) Bucket {
	switch {
	case kt > 40:
		return BucketSevere
	case kt >= 25:
		return BucketHigh
	case kt >= 15:
		return BucketModerate
	default:
		return BucketLow
	}
}

func currentBucket(kmh float64) Bucket {
	switch {
	case kmh > 2.0:
		return BucketSevere
	case kmh >= 1.0:
		return BucketModerate
	default:
		return BucketLow
	}
}

// visibilityBucket is inverted: lower visibility is the hazard.
func visibilityBucket(nm float64) Bucket {
	switch {
	case nm < 1.0:
		return BucketSevere
	case nm <= 5.0:
		return BucketModerate
	default:
		return BucketLow
	}
}
