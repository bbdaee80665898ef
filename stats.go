package mfs

import (
	"sync"
	"sync/atomic"

	"github.com/absfs/absfs"
	"github.com/prometheus/client_golang/prometheus"
)

// Statistics counts the operations performed against one filesystem scheme.
// A single instance is shared by every adapter and backend speaking that
// scheme, so counters are atomic.
type Statistics struct {
	scheme       string
	readOps      atomic.Int64
	largeReadOps atomic.Int64
	writeOps     atomic.Int64
	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
}

var statisticsTable sync.Map // scheme -> *Statistics

// StatisticsFor returns the shared statistics for scheme, creating them on
// first use.
func StatisticsFor(scheme string) *Statistics {
	if s, ok := statisticsTable.Load(scheme); ok {
		return s.(*Statistics)
	}
	s, _ := statisticsTable.LoadOrStore(scheme, &Statistics{scheme: scheme})
	return s.(*Statistics)
}

// Scheme returns the scheme the statistics belong to.
func (s *Statistics) Scheme() string { return s.scheme }

// IncrementReadOps adds n read operations.
func (s *Statistics) IncrementReadOps(n int) { s.readOps.Add(int64(n)) }

// IncrementLargeReadOps adds n large read operations such as listings.
func (s *Statistics) IncrementLargeReadOps(n int) { s.largeReadOps.Add(int64(n)) }

// IncrementWriteOps adds n write operations.
func (s *Statistics) IncrementWriteOps(n int) { s.writeOps.Add(int64(n)) }

// IncrementBytesRead adds n bytes read.
func (s *Statistics) IncrementBytesRead(n int64) { s.bytesRead.Add(n) }

// IncrementBytesWritten adds n bytes written.
func (s *Statistics) IncrementBytesWritten(n int64) { s.bytesWritten.Add(n) }

// ReadOps returns the number of read operations.
func (s *Statistics) ReadOps() int64 { return s.readOps.Load() }

// LargeReadOps returns the number of large read operations.
func (s *Statistics) LargeReadOps() int64 { return s.largeReadOps.Load() }

// WriteOps returns the number of write operations.
func (s *Statistics) WriteOps() int64 { return s.writeOps.Load() }

// BytesRead returns the number of bytes read.
func (s *Statistics) BytesRead() int64 { return s.bytesRead.Load() }

// BytesWritten returns the number of bytes written.
func (s *Statistics) BytesWritten() int64 { return s.bytesWritten.Load() }

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	s.readOps.Store(0)
	s.largeReadOps.Store(0)
	s.writeOps.Store(0)
	s.bytesRead.Store(0)
	s.bytesWritten.Store(0)
}

// countingFile charges reads and writes on a file to a Statistics.
type countingFile struct {
	absfs.File
	stats *Statistics
}

func newCountingFile(f absfs.File, stats *Statistics) absfs.File {
	if stats == nil {
		return f
	}
	return &countingFile{File: f, stats: stats}
}

func (f *countingFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	f.stats.IncrementBytesRead(int64(n))
	return n, err
}

func (f *countingFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	f.stats.IncrementBytesRead(int64(n))
	return n, err
}

func (f *countingFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	f.stats.IncrementBytesWritten(int64(n))
	return n, err
}

func (f *countingFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.File.WriteAt(p, off)
	f.stats.IncrementBytesWritten(int64(n))
	return n, err
}

func (f *countingFile) WriteString(s string) (int, error) {
	n, err := f.File.WriteString(s)
	f.stats.IncrementBytesWritten(int64(n))
	return n, err
}

// statisticsCollector exports Statistics as Prometheus counters.
type statisticsCollector struct {
	stats        []*Statistics
	readOps      *prometheus.Desc
	largeReadOps *prometheus.Desc
	writeOps     *prometheus.Desc
	bytesRead    *prometheus.Desc
	bytesWritten *prometheus.Desc
}

// NewStatisticsCollector returns a prometheus.Collector reporting the given
// statistics, labelled by scheme.
func NewStatisticsCollector(stats ...*Statistics) prometheus.Collector {
	labels := []string{"scheme"}
	return &statisticsCollector{
		stats:        stats,
		readOps:      prometheus.NewDesc("mfs_read_ops_total", "Read operations issued.", labels, nil),
		largeReadOps: prometheus.NewDesc("mfs_large_read_ops_total", "Listing operations issued.", labels, nil),
		writeOps:     prometheus.NewDesc("mfs_write_ops_total", "Write operations issued.", labels, nil),
		bytesRead:    prometheus.NewDesc("mfs_bytes_read_total", "Bytes read from files.", labels, nil),
		bytesWritten: prometheus.NewDesc("mfs_bytes_written_total", "Bytes written to files.", labels, nil),
	}
}

func (c *statisticsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readOps
	ch <- c.largeReadOps
	ch <- c.writeOps
	ch <- c.bytesRead
	ch <- c.bytesWritten
}

func (c *statisticsCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats {
		ch <- prometheus.MustNewConstMetric(c.readOps, prometheus.CounterValue, float64(s.ReadOps()), s.scheme)
		ch <- prometheus.MustNewConstMetric(c.largeReadOps, prometheus.CounterValue, float64(s.LargeReadOps()), s.scheme)
		ch <- prometheus.MustNewConstMetric(c.writeOps, prometheus.CounterValue, float64(s.WriteOps()), s.scheme)
		ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(s.BytesRead()), s.scheme)
		ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(s.BytesWritten()), s.scheme)
	}
}
