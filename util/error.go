package util

//CheckErrNop checks if err is nil, if not, log a warning with msg and err and carry on.
func CheckErrNop(err error, msg string) (e bool) {
	e = err != nil
	if e {
		log.Warnf("%s, [%+v]", msg, err)
	}
	return
}
