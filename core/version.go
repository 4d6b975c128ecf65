package core

// Version is overridden at release time with -ldflags "-X .../core.Version=x.y.z"
var Version = "dev"
