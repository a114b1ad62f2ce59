package attune

// Version is the SDK release version, reported in the User-Agent header.
const Version = "0.4.1"

const defaultUserAgent = "attune-go/" + Version
