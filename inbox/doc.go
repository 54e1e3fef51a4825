package inbox

// inbox is what tests call. It combines the MailHog client, the filter
// builders, and the retry engine into "get mail by X", "wait for mail" and
// "has mail" helpers, so each of them polls the same way.
