package model

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans partitions points into K clusters with Lloyd iterations from
// k-means++ seeds. The same Seed always yields the same clustering.
type KMeans struct {
	K       int
	MaxIter int
	// NInit restarts from fresh seeds and keeps the lowest inertia.
	NInit int
	Seed  int64
	// Tol stops iterating once no centroid moves further than this.
	Tol float64
}

// NewKMeans returns a KMeans with the usual defaults.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, MaxIter: 300, NInit: 10, Seed: seed, Tol: 1e-4}
}

// Clustering is a fitted partition.
type Clustering struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
	// Converged is false when MaxIter ran out first; the result is still usable.
	Converged bool
}

// Fit clusters the rows of X.
func (m *KMeans) Fit(X mat.Matrix) (*Clustering, error) {
	pts := Rows(X)
	if len(pts) == 0 {
		return nil, errors.New("kmeans: input data cannot be empty")
	}
	if m.K <= 0 {
		return nil, errors.New("kmeans: K must be positive")
	}
	if len(pts) < m.K {
		return nil, errors.New("kmeans: number of data points is less than K")
	}
	maxIter, nInit := m.MaxIter, m.NInit
	if maxIter <= 0 {
		maxIter = 300
	}
	if nInit <= 0 {
		nInit = 1
	}
	rng := rand.New(rand.NewSource(m.Seed))

	var best *Clustering
	for run := 0; run < nInit; run++ {
		c := m.lloyd(pts, m.initCenters(pts, rng), maxIter)
		if best == nil || c.Inertia < best.Inertia {
			best = c
		}
	}
	return best, nil
}

func (m *KMeans) lloyd(pts [][]float64, centroids [][]float64, maxIter int) *Clustering {
	n, d := len(pts), len(pts[0])
	labels := make([]int, n)
	res := &Clustering{Centroids: centroids}
	for it := 0; it < maxIter; it++ {
		res.Iterations = it + 1
		assign(pts, centroids, labels)

		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, d)
		}
		for i, p := range pts {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		shift := 0.0
		for k := range centroids {
			if counts[k] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[k]), sums[k])
			if s := floats.Distance(sums[k], centroids[k], 2); s > shift {
				shift = s
			}
			centroids[k] = sums[k]
		}
		if shift <= m.Tol {
			res.Converged = true
			break
		}
	}
	res.Inertia = assign(pts, centroids, labels)
	res.Labels = labels
	return res
}

// assign labels every point with its nearest centroid and returns the inertia.
func assign(pts, centroids [][]float64, labels []int) float64 {
	inertia := 0.0
	for i, p := range pts {
		best, bestD := 0, math.Inf(1)
		for k, c := range centroids {
			d := sqDist(p, c)
			if d < bestD {
				best, bestD = k, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// initCenters picks K seeds, each drawn with probability proportional to its
// squared distance from the seeds already chosen.
func (m *KMeans) initCenters(pts [][]float64, rng *rand.Rand) [][]float64 {
	n := len(pts)
	centroids := make([][]float64, 0, m.K)
	centroids = append(centroids, append([]float64(nil), pts[rng.Intn(n)]...))

	distSq := make([]float64, n)
	for len(centroids) < m.K {
		total := 0.0
		for i, p := range pts {
			minD := math.Inf(1)
			for _, c := range centroids {
				if d := sqDist(p, c); d < minD {
					minD = d
				}
			}
			distSq[i] = minD
			total += minD
		}
		next := rng.Intn(n)
		if total > 0 {
			r := rng.Float64() * total
			cum := 0.0
			for i, d2 := range distSq {
				cum += d2
				if cum >= r && d2 > 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), pts[next]...))
	}
	return centroids
}

// Predict assigns new points to the nearest fitted centroid.
func (c *Clustering) Predict(X mat.Matrix) ([]int, error) {
	pts := Rows(X)
	if len(pts) == 0 {
		return nil, errors.New("kmeans: input data for prediction cannot be empty")
	}
	if err := checkWidth(len(pts[0]), len(c.Centroids[0])); err != nil {
		return nil, err
	}
	labels := make([]int, len(pts))
	assign(pts, c.Centroids, labels)
	return labels, nil
}

// Sizes counts the points in each cluster.
func (c *Clustering) Sizes() []int {
	out := make([]int, len(c.Centroids))
	for _, l := range c.Labels {
		out[l]++
	}
	return out
}
