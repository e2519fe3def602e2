package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns the DFT magnitude of data, one value per frequency
// bin up to the Nyquist frequency. Used to spot thermostat oscillations in a
// thermo log column.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(data))
	coeffs := fft.Coefficients(nil, data)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency returns the strongest nonzero bin of a power spectrum
// and its magnitude. Bin 0 (the mean) is excluded.
func DominantFrequency(ps []float64) (bin int, power float64) {
	for i := 1; i < len(ps); i++ {
		if ps[i] > power {
			power = ps[i]
			bin = i
		}
	}
	return bin, power
}
