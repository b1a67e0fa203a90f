package buildinfo

var (
    Service = "eldtrip-api"
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

func Info() map[string]string {
    return map[string]string{
        "service": Service,
        "version": Version,
        "commit":  Commit,
        "builtAt": BuiltAt,
    }
}
