package retry

// retry polls a mail capture server until a filter finds something or a time
// budget runs out. It knows nothing about HTTP or configuration: callers hand
// it a Fetcher and a Filter, which keeps it usable with any transport and
// easy to test with in-memory fetchers.
