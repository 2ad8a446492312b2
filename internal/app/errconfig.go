package app

type errCtx struct {
	Code  int
	Title string
	Msg   string
}

func get400() errCtx {
	return errCtx{
		Code:  400,
		Title: "Bad request",
		Msg:   "Sorry, we couldn't use that input.",
	}
}

func get404() errCtx {
	return errCtx{
		Code:  404,
		Title: "Not found",
		Msg:   "Sorry, we couldn't find the page you were looking for.",
	}
}

func get405() errCtx {
	return errCtx{
		Code:  405,
		Title: "Method not allowed",
		Msg:   "Sorry, we couldn't find the page you were looking for.",
	}
}

func get409() errCtx {
	return errCtx{
		Code:  409,
		Title: "Superseded",
		Msg:   "A newer optimization was started, so this result was discarded.",
	}
}

func get422() errCtx {
	return errCtx{
		Code:  422,
		Title: "Unusable response",
		Msg:   "The model's answer could not be used.",
	}
}

func get429() errCtx {
	return errCtx{
		Code:  429,
		Title: "Too many requests",
		Msg:   "Please wait a moment before optimizing again.",
	}
}

func get500() errCtx {
	return errCtx{
		Code:  500,
		Title: "Internal server error",
		Msg:   "Sorry, there was an internal server error.",
	}
}

func get502() errCtx {
	return errCtx{
		Code:  502,
		Title: "Completion service unavailable",
		Msg:   "The model could not be reached. Please try again.",
	}
}
