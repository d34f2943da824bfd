package observability

// Sampler exposes sampler selection to tests.
var Sampler = sampler
