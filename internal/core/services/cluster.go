package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/logger"
)

// ClusterEngine groups embedding vectors into density-based clusters.
// The pipeline is: centred PCA reduction, then a density pass over the
// reduced space, then size/merge post-processing. Everything is
// deterministic for a given input.
type ClusterEngine struct{}

// NewClusterEngine creates a cluster engine.
func NewClusterEngine() *ClusterEngine {
	return &ClusterEngine{}
}

// Cluster assigns every vector to a cluster id, with domain.NoiseCluster
// for points not dense enough to belong anywhere. The returned assignment
// is a complete partition of the input indices.
func (e *ClusterEngine) Cluster(vectors [][]float32, cfg domain.AutoCodingConfig) domain.Clustering {
	n := len(vectors)
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = domain.NoiseCluster
	}
	result := domain.Clustering{Assignment: assignment}

	// Density clustering is degenerate below the minimum cluster size.
	if n < cfg.MinClusterSize || n < 2 {
		logger.Debug("cluster: %d vectors below minimum %d, all noise", n, cfg.MinClusterSize)
		return result
	}

	reduced := reduce(vectors, cfg.Components)

	labels := dbscan(reduced, cfg.MinSamples, cfg.MinClusterSize)

	// Collect non-noise clusters.
	byID := map[int][]int{}
	for i, id := range labels {
		if id != domain.NoiseCluster {
			byID[id] = append(byID[id], i)
		}
	}

	clusters := make([]domain.Cluster, 0, len(byID))
	for id, members := range byID {
		c := domain.Cluster{
			ID:       id,
			Members:  members,
			Centroid: centroid(vectors, members),
		}
		c.Coherence = coherence(vectors, members, c.Centroid)
		clusters = append(clusters, c)
	}

	clusters = mergeSimilar(clusters, vectors, cfg.MergeThreshold)
	clusters = capThemes(clusters, cfg.MaxThemes)

	// Renumber ids by size descending and rebuild the assignment.
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Size() != clusters[j].Size() {
			return clusters[i].Size() > clusters[j].Size()
		}
		if clusters[i].Coherence != clusters[j].Coherence {
			return clusters[i].Coherence > clusters[j].Coherence
		}
		return clusters[i].ID < clusters[j].ID
	})
	for newID := range clusters {
		clusters[newID].ID = newID
		sort.Ints(clusters[newID].Members)
		for _, m := range clusters[newID].Members {
			assignment[m] = newID
		}
	}

	result.Clusters = clusters
	logger.Debug("cluster: %d clusters, %d noise points", len(clusters), result.NoiseCount())
	return result
}

// reduce projects the vectors onto their first k principal components.
// Reduction is skipped when the data is already at or below the target
// dimensionality.
func reduce(vectors [][]float32, components int) [][]float64 {
	n := len(vectors)
	dim := len(vectors[0])

	k := components
	if k > dim {
		k = dim
	}
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}

	data := make([]float64, n*dim)
	for i, vec := range vectors {
		for j, v := range vec {
			data[i*dim+j] = float64(v)
		}
	}
	m := mat.NewDense(n, dim, data)

	// Centre columns.
	for j := 0; j < dim; j++ {
		mean := 0.0
		for i := 0; i < n; i++ {
			mean += m.At(i, j)
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			m.Set(i, j, m.At(i, j)-mean)
		}
	}

	if dim <= k {
		return denseRows(m, n, dim)
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		// SVD failure on well-formed input is effectively unreachable;
		// fall back to the centred data untouched.
		logger.Warn("cluster: SVD did not converge, skipping reduction")
		return denseRows(m, n, dim)
	}

	var v mat.Dense
	svd.VTo(&v)
	vk := v.Slice(0, dim, 0, k)

	var projected mat.Dense
	projected.Mul(m, vk)
	return denseRows(&projected, n, k)
}

// denseRows copies a dense matrix into per-row slices.
func denseRows(m mat.Matrix, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}

// dbscan runs a density pass over the reduced space. The neighbourhood
// radius comes from the k-distance heuristic: the median distance to each
// point's minSamples-th nearest neighbour. Clusters smaller than
// minClusterSize are demoted to noise.
func dbscan(points [][]float64, minSamples, minClusterSize int) []int {
	n := len(points)
	eps := kDistanceEps(points, minSamples)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = domain.NoiseCluster
	}

	visited := make([]bool, n)
	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbours := regionQuery(points, i, eps)
		if len(neighbours) < minSamples {
			continue
		}

		// Expand a new cluster from this core point.
		labels[i] = next
		queue := neighbours
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] == domain.NoiseCluster {
				labels[p] = next
			}
			if visited[p] {
				continue
			}
			visited[p] = true
			pn := regionQuery(points, p, eps)
			if len(pn) >= minSamples {
				queue = append(queue, pn...)
			}
		}
		next++
	}

	// Demote undersized clusters.
	sizes := map[int]int{}
	for _, id := range labels {
		if id != domain.NoiseCluster {
			sizes[id]++
		}
	}
	for i, id := range labels {
		if id != domain.NoiseCluster && sizes[id] < minClusterSize {
			labels[i] = domain.NoiseCluster
		}
	}
	return labels
}

// kDistanceEps returns the median k-th nearest-neighbour distance.
func kDistanceEps(points [][]float64, k int) float64 {
	n := len(points)
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}
	kdists := make([]float64, n)
	dists := make([]float64, n)
	for i := range points {
		for j := range points {
			dists[j] = euclidean(points[i], points[j])
		}
		sort.Float64s(dists)
		kdists[i] = dists[k] // dists[0] is the point itself
	}
	sort.Float64s(kdists)
	return kdists[n/2]
}

// regionQuery returns the indices within eps of point i, i included.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var out []int
	for j := range points {
		if euclidean(points[i], points[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// centroid is the component mean of the member vectors in the original
// embedding space.
func centroid(vectors [][]float32, members []int) []float32 {
	dim := len(vectors[members[0]])
	sum := make([]float64, dim)
	for _, m := range members {
		for j, v := range vectors[m] {
			sum[j] += float64(v)
		}
	}
	out := make([]float32, dim)
	for j := range sum {
		out[j] = float32(sum[j] / float64(len(members)))
	}
	return out
}

// coherence is the mean cosine similarity of members to the centroid,
// clamped to [0,1].
func coherence(vectors [][]float32, members []int, centre []float32) float64 {
	if len(members) < 2 {
		return 1
	}
	sum := 0.0
	for _, m := range members {
		sum += cosine(vectors[m], centre)
	}
	mean := sum / float64(len(members))
	return math.Max(0, math.Min(1, mean))
}

// cosine returns the cosine similarity of two vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mergeSimilar merges clusters whose centroids reach the cosine threshold,
// grouping transitively with union-find.
func mergeSimilar(clusters []domain.Cluster, vectors [][]float32, threshold float64) []domain.Cluster {
	if len(clusters) <= 1 || threshold <= 0 || threshold > 1 {
		return clusters
	}

	parent := make([]int, len(clusters))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			if cosine(clusters[i].Centroid, clusters[j].Centroid) >= threshold {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := map[int][]int{}
	for i := range clusters {
		root := find(i)
		groups[root] = append(groups[root], i)
	}
	if len(groups) == len(clusters) {
		return clusters
	}

	merged := make([]domain.Cluster, 0, len(groups))
	for _, idxs := range groups {
		if len(idxs) == 1 {
			merged = append(merged, clusters[idxs[0]])
			continue
		}
		var members []int
		id := clusters[idxs[0]].ID
		for _, idx := range idxs {
			members = append(members, clusters[idx].Members...)
			if clusters[idx].ID < id {
				id = clusters[idx].ID
			}
		}
		c := domain.Cluster{ID: id, Members: members, Centroid: centroid(vectors, members)}
		c.Coherence = coherence(vectors, members, c.Centroid)
		merged = append(merged, c)
	}
	logger.Debug("cluster: merged %d clusters into %d", len(clusters), len(merged))
	return merged
}

// capThemes demotes excess clusters to noise, smallest first. Ties break
// on lower coherence, then higher id, so the outcome is deterministic.
func capThemes(clusters []domain.Cluster, maxThemes int) []domain.Cluster {
	if maxThemes <= 0 || len(clusters) <= maxThemes {
		return clusters
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Size() != clusters[j].Size() {
			return clusters[i].Size() > clusters[j].Size()
		}
		if clusters[i].Coherence != clusters[j].Coherence {
			return clusters[i].Coherence > clusters[j].Coherence
		}
		return clusters[i].ID < clusters[j].ID
	})
	logger.Debug("cluster: demoting %d excess clusters to noise", len(clusters)-maxThemes)
	return clusters[:maxThemes]
}
