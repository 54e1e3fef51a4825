package filter

// filter builds retry.Filters out of the pure list filters in the mailhog
// package, so every "get mail by X" helper shares one polling loop.
