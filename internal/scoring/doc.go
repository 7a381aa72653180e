// Package scoring turns directory records and site audits into 0-100
// prospect scores. A higher score means a weaker web presence and so a
// stronger sales lead.
//
// Two independent scorers live here: a lightweight one that only reads
// directory metadata, and an audit-based one that reads live page signals
// and explains itself with a prospect.ScoreBreakdown.
package scoring
